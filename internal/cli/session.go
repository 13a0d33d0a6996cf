package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/trackstore/internal/logger"
	"github.com/roach88/trackstore/internal/metrics"
	"github.com/roach88/trackstore/internal/notify"
	"github.com/roach88/trackstore/internal/prefs"
	"github.com/roach88/trackstore/internal/provider"
	"github.com/roach88/trackstore/internal/resource"
	"github.com/roach88/trackstore/internal/store"
)

// session holds everything a data command needs for one invocation.
type session struct {
	opts     *RootOptions
	out      *OutputFormatter
	store    *store.Store
	provider *provider.Provider
	bus      *notify.Bus
	registry *prometheus.Registry
	logger   zerolog.Logger
}

// openSession opens the database and preferences named by the effective
// configuration and wires a provider over them.
//
// Change notifications are queued on a bus and, in verbose mode, printed
// when the session closes.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg := opts.Config

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}

	counter, err := prefs.OpenFile(cfg.PrefsPath)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "failed to open preferences", err)
	}

	s := &session{
		opts: opts,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		store:    st,
		bus:      notify.NewBus(log),
		registry: prometheus.NewRegistry(),
		logger:   log,
	}

	router := resource.NewRouter(cfg.Authority)
	s.bus.Subscribe(resource.Scheme+"://"+cfg.Authority, func(c notify.Change) {
		s.out.VerboseLog("changed: %s (#%d)", c.URI, c.Seq)
	})

	s.provider = provider.New(st, counter,
		provider.WithRouter(router),
		provider.WithNotifier(s.bus),
		provider.WithMetrics(metrics.NewMetrics(s.registry)),
		provider.WithLogger(log),
		provider.WithVacuumThreshold(cfg.VacuumThreshold),
	)

	s.out.VerboseLog("database: %s", cfg.DBPath)
	return s, nil
}

// closeWith runs close and reports its failure through errp unless the
// command has already failed.
func closeWith(errp *error, msg string, close func() error) {
	if err := close(); err != nil && *errp == nil {
		*errp = WrapExitError(ExitFailure, msg, err)
	}
}

// Close delivers pending notifications, prints metrics if requested and
// closes the database.
func (s *session) Close() error {
	s.bus.Close()
	if err := s.bus.Run(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("notification delivery stopped")
	}

	if s.opts.Metrics {
		if err := s.writeMetrics(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write metrics")
		}
	}
	return s.store.Close()
}

// writeMetrics prints the session's metrics in the Prometheus text format.
func (s *session) writeMetrics() error {
	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	w := s.out.GetErrWriter()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
