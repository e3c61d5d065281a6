package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stemd/internal/httpapi"
)

var (
	serveAddr        string
	serveCORSOrigins string
	serveTimeout     time.Duration
	serveMaxBody     int64

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address, e.g. :8080 (default from config or STEMD_ADDR)")
	serveCmd.Flags().StringVar(&serveCORSOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS when set")
	serveCmd.Flags().DurationVar(&serveTimeout, "separate-timeout", 0, "Upper bound for one /separate request (0 disables)")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body-bytes", 1<<20, "Maximum JSON request body size")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if origins := splitCSV(serveCORSOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = origins
	}

	orch, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	if !orch.Ready() {
		log.Warn().Strs("separator_cmd", cfg.SeparatorCmd).Msg("separator not found; /separate will return 503")
	}

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(serveMaxBody)
	httpapi.SetSeparateTimeout(serveTimeout)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(orch),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Int("models", len(orch.ListModels())).Msg("stemd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-stop:
	}
	// Cancel in-flight jobs before draining connections.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
