package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/trackstore/internal/resource"
	"github.com/roach88/trackstore/internal/stats"
	"github.com/roach88/trackstore/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Columns   []string
	Selection string
	Args      []string
	Sort      string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <locator>",
		Short: "Query rows",
		Long: `Print the rows addressed by a locator.

Unknown --columns are ignored; without any known column every stored column
is printed. Selections reference values only through ? placeholders bound
with --arg. --sort takes "column [ASC|DESC]" terms separated by commas.

Example:
  trackstore query content://de.dennisguse.opentracks/tracks --columns name,markerCount --sort 'markerCount DESC'
  trackstore query content://de.dennisguse.opentracks/trackpoints/trackid/1,2 --where 'sensor_heartrate > ?' --arg 150
  trackstore query content://de.dennisguse.opentracks/tracks/sensorstats/1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to print, comma-separated")
	cmd.Flags().StringVar(&opts.Selection, "where", "", "selection with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "selection argument, once per placeholder")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort order")

	return cmd
}

func runQuery(opts *QueryOptions, uri string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer closeWith(&err, "failed to close database", s.Close)

	rs, err := s.provider.Query(context.Background(), uri, opts.Columns, opts.Selection, opts.Args, opts.Sort)
	if err != nil {
		return WrapProviderError("query failed", err)
	}
	return s.out.Success(NewRowSetOutput(rs))
}

// NewTypeCommand creates the type command.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type <locator>",
		Short: "Print the type of a locator",
		Long: `Print the type string of the resource a locator addresses. Bare table
locators have a directory type, all others an item type.

Example:
  trackstore type content://de.dennisguse.opentracks/tracks/3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			// No database is needed to classify a locator.
			router := resource.NewRouter(rootOpts.Config.Authority)
			m, err := router.Resolve(args[0])
			if err != nil {
				return WrapProviderError("type failed", err)
			}
			typ, err := router.TypeOf(m.Kind)
			if err != nil {
				return WrapProviderError("type failed", err)
			}
			return out.Success(typ)
		},
	}
	return cmd
}

// StatsOutput is the printable form of a track's sensor statistics.
type StatsOutput struct {
	TrackID    int64    `json:"track_id" yaml:"track_id"`
	AvgHR      *float64 `json:"avg_hr" yaml:"avg_hr"`
	MaxHR      *float64 `json:"max_hr" yaml:"max_hr"`
	AvgCadence *float64 `json:"avg_cadence" yaml:"avg_cadence"`
	MaxCadence *float64 `json:"max_cadence" yaml:"max_cadence"`
	AvgPower   *float64 `json:"avg_power" yaml:"avg_power"`
	MaxPower   *float64 `json:"max_power" yaml:"max_power"`
}

func newStatsOutput(trackID int64, s stats.SensorStats) StatsOutput {
	return StatsOutput{
		TrackID:    trackID,
		AvgHR:      s.HeartRate.Avg,
		MaxHR:      s.HeartRate.Max,
		AvgCadence: s.Cadence.Avg,
		MaxCadence: s.Cadence.Max,
		AvgPower:   s.Power.Avg,
		MaxPower:   s.Power.Max,
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <track-id>",
		Short: "Print duration-weighted sensor statistics of a track",
		Long: `Print the average and maximum heart rate, cadence and power of a track.
Averages are weighted by the time each reading was held; points that start a
manually paused segment are ignored.

Example:
  trackstore stats 3
  trackstore stats 3 --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			trackID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || trackID < 0 {
				return NewExitError(ExitCommandError, "invalid track id "+strconv.Quote(args[0]))
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer closeWith(&err, "failed to close database", s.Close)

			result, err := s.provider.SensorStats(context.Background(), trackID)
			if err != nil {
				return WrapProviderError("stats failed", err)
			}
			if s.out.Format == "text" {
				return s.out.Success(RowSetOutput{Columns: stats.Columns, Rows: [][]any{result.Row()}})
			}
			return s.out.Success(newStatsOutput(trackID, result))
		},
	}
	return cmd
}

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Down bool
}

// MigrateResult reports the schema version after the command.
type MigrateResult struct {
	Version uint `json:"version" yaml:"version"`
	Dirty   bool `json:"dirty" yaml:"dirty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and print the schema version",
		Long: `Bring the database schema up to date and print its version.
With --down, roll back the most recent migration instead.

Example:
  trackstore migrate --db ./tracks.db
  trackstore migrate --db ./tracks.db --down`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "roll back the most recent migration")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) (err error) {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	// Open applies pending migrations.
	st, err := store.Open(opts.Config.DBPath)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open database", err)
	}
	defer closeWith(&err, "failed to close database", st.Close)

	if opts.Down {
		out.VerboseLog("rolling back one migration")
		if err := st.MigrateDown(); err != nil {
			return WrapExitError(ExitFailure, "migration failed", err)
		}
	}

	version, dirty, err := st.SchemaVersion()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read schema version", err)
	}
	result := MigrateResult{Version: version, Dirty: dirty}
	if out.Format == "text" {
		return out.Success(fmt.Sprintf("schema version %d (dirty=%t)", version, dirty))
	}
	return out.Success(result)
}
