package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type Options struct {
	// Registry receives the HTTP collectors and is served on /metrics. Nil uses the
	// process-wide default registry.
	Registry       *prometheus.Registry
	Logger         *slog.Logger
	AllowedOrigins []string
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
	logger              *slog.Logger
	cors                middleware.CORSConfig
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, opts Options, registrars ...RouteRegistrar) *APIServer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		routeRegistrars:     registrars,
		metrics:             newMetrics(reg, gatherer, listenAddr, rqm),
		logger:              opts.Logger,
		cors:                middleware.DefaultCORSConfig(opts.AllowedOrigins),
	}
}

// Handler builds the instrumented mux with every registered route.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.listenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped", slog.String("addr", s.listenAddr))
	return nil
}

func (s *APIServer) Logger() *slog.Logger {
	return s.logger
}
