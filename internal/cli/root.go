package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/trackstore/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
	Metrics bool

	// Flag overrides, applied over the loaded configuration.
	Database        string
	PrefsPath       string
	Authority       string
	VacuumThreshold int64
	LogLevel        string

	// Config is the effective configuration, set before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the trackstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trackstore",
		Short: "trackstore - track, trackpoint and marker storage",
		Long: `Inspect and modify a trackstore database of recorded tracks, their
trackpoints and markers.

Every command addresses data through a resource locator such as
content://de.dennisguse.opentracks/tracks/3. Settings are read from
TRACKSTORE_* environment variables (or a .env file) and can be
overridden with flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print collected metrics to stderr on exit")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides TRACKSTORE_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "path to preferences file (overrides TRACKSTORE_PREFS_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Authority, "authority", "", "locator authority (overrides TRACKSTORE_AUTHORITY)")
	cmd.PersistentFlags().Int64Var(&opts.VacuumThreshold, "vacuum-threshold", 0, "deleted rows before compaction (overrides TRACKSTORE_VACUUM_THRESHOLD)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides TRACKSTORE_LOG_LEVEL)")

	// Add subcommands
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewBulkInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTypeCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = opts.Database
	}
	if flags.Changed("prefs") {
		cfg.PrefsPath = opts.PrefsPath
	}
	if flags.Changed("authority") {
		cfg.Authority = opts.Authority
	}
	if flags.Changed("vacuum-threshold") {
		cfg.VacuumThreshold = opts.VacuumThreshold
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if opts.Format == "json" {
		cfg.LogFormat = "json"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
