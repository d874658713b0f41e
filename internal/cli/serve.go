package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tianqilab/tianqi/internal/config"
	"github.com/tianqilab/tianqi/internal/ingest"
	"github.com/tianqilab/tianqi/internal/server"
	"github.com/tianqilab/tianqi/internal/store"
	"github.com/tianqilab/tianqi/internal/tool"
)

// NewServeCommand creates the serve command: run the HTTP tool API.
// Environment configuration applies; the --db and --addr flags win when
// set explicitly.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the tool API over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "load configuration", err)
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = opts.DBPath
			}

			log, err := config.NewLogger(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "build logger", err)
			}
			defer log.Sync()

			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer st.Close()

			promReg := prometheus.NewRegistry()
			svcOpts := tool.Options{
				Logger:  log,
				Metrics: tool.NewMetrics(promReg),
			}
			if cfg.IngestEnabled {
				svcOpts.Ingestor = ingest.NewClient(cfg.IngestBaseURL, cfg.IngestRPS, reg, log)
			}
			svc := tool.New(reg, st, svcOpts)
			srv := server.New(cfg.HTTPAddr, svc, promReg, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return WrapExitError(ExitCommandError, "http server", err)
			case <-ctx.Done():
			}

			log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return WrapExitError(ExitCommandError, "shutdown", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
