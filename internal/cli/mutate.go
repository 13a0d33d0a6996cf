package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// MutationOptions holds flags shared by the insert, update and delete
// commands.
type MutationOptions struct {
	*RootOptions
	Values    string
	File      string
	Selection string
	Args      []string
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <locator>",
		Short: "Insert one row",
		Long: `Insert one row into the table addressed by a bare table locator and
print the locator of the new row.

Example:
  trackstore insert content://de.dennisguse.opentracks/tracks --values '{"name": "Morning run"}'
  trackstore insert content://de.dennisguse.opentracks/trackpoints --values '{"trackid": 1, "time": 1700000000000}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "column values as a JSON or YAML mapping (required)")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}

func runInsert(opts *MutationOptions, uri string, cmd *cobra.Command) (err error) {
	values, err := parseValues(opts.Values)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse --values", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer closeWith(&err, "failed to close database", s.Close)

	locator, err := s.provider.Insert(context.Background(), uri, values)
	if err != nil {
		return WrapProviderError("insert failed", err)
	}
	return s.out.Success(locator)
}

// NewBulkInsertCommand creates the bulk-insert command.
func NewBulkInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bulk-insert <locator>",
		Short: "Insert many rows in one transaction",
		Long: `Insert a list of rows into the table addressed by a bare table locator.
Either every row is inserted or none is. Prints the number of rows inserted.

Rows are read from --file, or from --values when no file is given.

Example:
  trackstore bulk-insert content://de.dennisguse.opentracks/trackpoints --file points.yaml
  trackstore bulk-insert content://de.dennisguse.opentracks/markers --values '[{"trackid": 1}, {"trackid": 1}]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulkInsert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "rows as a JSON or YAML list of mappings")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "file holding a JSON or YAML list of mappings")
	cmd.MarkFlagsOneRequired("values", "file")
	cmd.MarkFlagsMutuallyExclusive("values", "file")

	return cmd
}

func runBulkInsert(opts *MutationOptions, uri string, cmd *cobra.Command) (err error) {
	rows, err := readValuesList(opts.File, opts.Values)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read rows", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer closeWith(&err, "failed to close database", s.Close)

	n, err := s.provider.BulkInsert(context.Background(), uri, rows)
	if err != nil {
		return WrapProviderError("bulk insert failed", err)
	}
	return s.out.Success(n)
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <locator>",
		Short: "Update rows",
		Long: `Update the rows addressed by a locator that also match --where, and
print the number of rows changed. Selections reference values only through
? placeholders bound with --arg.

Example:
  trackstore update content://de.dennisguse.opentracks/tracks/3 --values '{"name": "Evening run"}'
  trackstore update content://de.dennisguse.opentracks/markers --values '{"category": "photo"}' --where 'trackid = ?' --arg 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "column values as a JSON or YAML mapping (required)")
	_ = cmd.MarkFlagRequired("values")
	cmd.Flags().StringVar(&opts.Selection, "where", "", "selection with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "selection argument, once per placeholder")

	return cmd
}

func runUpdate(opts *MutationOptions, uri string, cmd *cobra.Command) (err error) {
	values, err := parseValues(opts.Values)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse --values", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer closeWith(&err, "failed to close database", s.Close)

	n, err := s.provider.Update(context.Background(), uri, values, opts.Selection, opts.Args)
	if err != nil {
		return WrapProviderError("update failed", err)
	}
	return s.out.Success(n)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <locator>",
		Short: "Delete rows",
		Long: `Delete the rows of a bare table locator that match --where, and print
the number of rows deleted directly. Deleting a track also deletes its
trackpoints and markers.

Example:
  trackstore delete content://de.dennisguse.opentracks/tracks --where '_id = ?' --arg 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Selection, "where", "", "selection with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "selection argument, once per placeholder")

	return cmd
}

func runDelete(opts *MutationOptions, uri string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer closeWith(&err, "failed to close database", s.Close)

	n, err := s.provider.Delete(context.Background(), uri, opts.Selection, opts.Args)
	if err != nil {
		return WrapProviderError("delete failed", err)
	}
	return s.out.Success(n)
}
