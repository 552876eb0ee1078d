package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nerrad567/cinnamon-core/internal/audit"
	"github.com/nerrad567/cinnamon-core/internal/experience"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/logging"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Experience is the engine surface the API drives. *experience.Experience
// satisfies it; every method is safe for concurrent use.
type Experience interface {
	Status(ctx context.Context) (experience.Status, error)
	StartEntry(ctx context.Context) error
	StartSequence(ctx context.Context, source string) error
	StopSequence(ctx context.Context, reason string) (bool, error)
	Stages(ctx context.Context) ([]sequence.Stage, error)
	ReplaceStages(ctx context.Context, stages []sequence.Stage) error
	BeginWindow(ctx context.Context, duration time.Duration, threshold *float64) (string, error)
	CloseWindow(ctx context.Context) (bool, error)
	TriggerMaterial(ctx context.Context, id string, fadeIn bool, delay time.Duration) (bool, error)
	LoadScene(ctx context.Context, name string) error
	LoadSceneIndex(ctx context.Context, index int) error
	LoadNextScene(ctx context.Context) error
	LoadMainMenu(ctx context.Context) error
	Quit(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Experience Experience
	Runs       sequence.Repository
	Outcomes   motion.Repository
	Audit      audit.Repository
	Hub        *Hub        // If set, the server uses this hub instead of creating its own
	Tracer     trace.Tracer // Request spans; nil disables them
	Version    string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	exp      Experience
	runs     sequence.Repository
	outcomes motion.Repository
	audit    audit.Repository
	version  string
	server   *http.Server
	hub      *Hub
	tracer   trace.Tracer
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Experience == nil {
		return nil, fmt.Errorf("experience is required")
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		exp:      deps.Experience,
		runs:     deps.Runs,
		outcomes: deps.Outcomes,
		audit:    deps.Audit,
		version:  deps.Version,
		hub:      hub,
		tracer:   tracer,
	}, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.Hub().Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
