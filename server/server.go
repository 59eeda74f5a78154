// Package server wires the generation pipeline into an HTTP gateway: routing,
// middleware, metrics, and lifecycle management.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/config"
	"github.com/rowanvale/copysmith/gen/channel"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/gen/probe"
	"github.com/rowanvale/copysmith/server/handlers"
	"github.com/rowanvale/copysmith/server/metrics"
	"github.com/rowanvale/copysmith/server/middleware"
	"github.com/rowanvale/copysmith/server/validation"
)

// Router assembles the gateway's HTTP surface.
type Router struct {
	router  chi.Router
	monitor *probe.Monitor
}

// RouterDeps carries the handlers and shared components the router mounts.
type RouterDeps struct {
	Generate     http.Handler
	Chat         http.Handler
	Availability http.Handler
	Metrics      *metrics.Metrics
	Monitor      *probe.Monitor
	Queue        *middleware.QueueMiddleware
	Logger       *zap.Logger

	// RouteTimeout bounds the v1 endpoints; generation calls run long.
	RouteTimeout time.Duration
}

// NewRouter creates the gateway router with the full middleware stack.
func NewRouter(deps RouterDeps) *Router {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.CORS)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.PrometheusMetrics(deps.Metrics))

	router := &Router{
		router:  r,
		monitor: deps.Monitor,
	}

	routeTimeout := deps.RouteTimeout
	if routeTimeout == 0 {
		routeTimeout = 150 * time.Second
	}

	r.Group(func(v1 chi.Router) {
		v1.Use(middleware.RateLimit)
		v1.Use(middleware.Timeout(routeTimeout))
		if deps.Queue != nil {
			v1.Use(deps.Queue.Handler)
		}
		v1.Post("/v1/generate", deps.Generate.ServeHTTP)
		v1.Post("/v1/chat", deps.Chat.ServeHTTP)
		v1.Get("/v1/availability", deps.Availability.ServeHTTP)
	})

	r.Get("/health", router.healthHandler)
	r.Handle("/metrics", deps.Metrics.Handler())

	return router
}

// healthHandler reports gateway liveness plus the backend monitor's rolling
// view. The gateway itself is healthy even when the backend is not; backend
// state is informational.
func (r *Router) healthHandler(w http.ResponseWriter, req *http.Request) {
	status := map[string]string{"status": "ok"}
	if r.monitor != nil {
		status["backend"] = r.monitor.State()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Server is the HTTP gateway with its background monitor and queue.
type Server struct {
	httpServer *http.Server
	monitor    *probe.Monitor
	queue      *middleware.QueueMiddleware
	logger     *zap.Logger

	shutdownTimeout time.Duration
}

// NewServer builds the complete gateway from configuration: channels,
// dispatcher, prober, validators, handlers, and the HTTP server around them.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	m := metrics.NewMetrics()

	session := channel.NewSessionClient(channel.SessionConfig{
		Endpoint:  cfg.Backend.Endpoint,
		ProjectID: cfg.Backend.ProjectID,
		Session:   cfg.Backend.Session,
	})

	primary := channel.NewFunctionChannel(channel.FunctionConfig{
		Endpoint:   cfg.Backend.Endpoint,
		ProjectID:  cfg.Backend.ProjectID,
		FunctionID: cfg.Backend.GenerateFunctionID,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout,
	}, logger)

	chatChannel := channel.NewFunctionChannel(channel.FunctionConfig{
		Endpoint:   cfg.Backend.Endpoint,
		ProjectID:  cfg.Backend.ProjectID,
		FunctionID: cfg.Backend.ChatFunctionID,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout,
	}, logger)

	secondary := channel.NewRESTChannel(channel.RESTConfig{
		BaseURL: cfg.Backend.RESTBaseURL,
		Timeout: cfg.Backend.Timeout,
	}, session, logger)

	dispatcher := dispatch.NewDispatcher(primary, secondary, logger, m.Registry())

	prober := probe.NewProber(session, logger)
	var monitor *probe.Monitor
	if cfg.Probe.Enabled {
		monitor = probe.NewMonitor(prober, probe.MonitorConfig{
			Interval:         cfg.Probe.Interval,
			Timeout:          cfg.Probe.Timeout,
			FailureThreshold: cfg.Probe.FailureThreshold,
		}, logger, m.Registry())
	}

	validator := validation.NewValidator(cfg.Generation.MaxOutputCount, cfg.Generation.MaxInputTokens)

	var queue *middleware.QueueMiddleware
	if cfg.Queue.Enabled {
		queue = middleware.NewQueueMiddleware(middleware.QueueConfig{
			InitialSize: cfg.Queue.InitialSize,
			Metrics:     m,
		})
	}

	router := NewRouter(RouterDeps{
		Generate:     handlers.NewGenerateHandler(dispatcher, validator, cfg.Generation.DefaultOutputCount, logger),
		Chat:         handlers.NewChatHandler(chatChannel, validator, session, cfg.Chat.SystemPrompt, logger),
		Availability: handlers.NewAvailabilityHandler(prober, monitor, logger),
		Metrics:      m,
		Monitor:      monitor,
		Queue:        queue,
		Logger:       logger,
		RouteTimeout: cfg.Backend.Timeout + 30*time.Second,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
		monitor:         monitor,
		queue:           queue,
		logger:          logger,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Start starts the server and blocks until ctx is canceled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	if s.monitor != nil {
		go s.monitor.Start(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if s.queue != nil {
			if err := s.queue.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("queue drain incomplete", zap.Error(err))
			}
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
