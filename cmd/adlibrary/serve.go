// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/adlibrary/internal/invalidate"
	"github.com/pdiddy/adlibrary/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reconciled libraries over HTTP",
	Long: `Serve exposes the reconciled library of any user over HTTP:

  GET    /v1/users/{id}/records         reconciled library (?refresh=true skips the cache)
  DELETE /v1/users/{id}/records/cache   drop the cached library
  GET    /metrics                       Prometheus metrics
  GET    /healthz                       liveness

When nats.url is configured, record mutation events published on nats.subject
invalidate the affected user's cached library.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(cfg, loadedSecrets, reg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.NATS.URL != "" {
		l, err := invalidate.Listen(cfg.NATS.URL, cfg.NATS.Subject, a.pipeline, logger)
		if err != nil {
			return err
		}
		defer l.Close()
	}

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           newServer(a.pipeline, reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Serve.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newServer routes the library API.
func newServer(p *pipeline.Pipeline, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/users/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		run := p.Run
		if r.URL.Query().Get("refresh") == "true" {
			run = p.Refresh
		}
		out, err := run(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, pipeline.ErrAllSourcesFailed):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), SourceErrors: out.SourceErrors})
		case err != nil:
			log.Error("run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, out)
		}
	})

	mux.HandleFunc("DELETE /v1/users/{id}/records/cache", func(w http.ResponseWriter, r *http.Request) {
		if err := p.Invalidate(r.Context(), r.PathValue("id")); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	return mux
}

type errorResponse struct {
	Error        string                 `json:"error"`
	SourceErrors []pipeline.SourceError `json:"source_errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
