package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campusnav/campus-core/internal/audit"
	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
	"github.com/campusnav/campus-core/internal/infrastructure/config"
	"github.com/campusnav/campus-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	Logger        *logging.Logger
	Auth          *auth.Service
	Locations        community.LocationRepository
	Reviews          community.ReviewRepository
	Favorites        community.FavoriteRepository
	LocationRequests community.LocationRequestRepository
	Announcements    community.AnnouncementRepository
	Events           community.EventRepository
	AuditRepo        audit.Repository // optional: audit recording is disabled when nil
	Version          string
}

// Server is the HTTP API server for Campus Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg              config.APIConfig
	logger           *logging.Logger
	auth             *auth.Service
	locations        community.LocationRepository
	reviews          community.ReviewRepository
	favorites        community.FavoriteRepository
	locationRequests community.LocationRequestRepository
	announcements    community.AnnouncementRepository
	events           community.EventRepository
	auditRepo        audit.Repository
	auditCh          chan *audit.Entry
	version          string
	server           *http.Server
	cancel           context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Locations == nil || deps.Reviews == nil || deps.Favorites == nil ||
		deps.LocationRequests == nil || deps.Announcements == nil || deps.Events == nil {
		return nil, fmt.Errorf("community repositories are required")
	}

	s := &Server{
		cfg:              deps.Config,
		logger:           deps.Logger,
		auth:             deps.Auth,
		locations:        deps.Locations,
		reviews:          deps.Reviews,
		favorites:        deps.Favorites,
		locationRequests: deps.LocationRequests,
		announcements:    deps.Announcements,
		events:           deps.Events,
		auditRepo:        deps.AuditRepo,
		version:          deps.Version,
	}

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the async audit writer, and launches
// the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
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

	// Cancel background goroutines (audit writer drains before exiting)
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

// HealthCheck verifies the API server is running and responsive.
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
