package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/config"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/platform/metrics"
	"github.com/Clark-Hu/store-ratings/internal/query"
	"github.com/Clark-Hu/store-ratings/internal/service"
	"github.com/Clark-Hu/store-ratings/internal/store"
)

// ListingService produces the role-scoped listings and read views.
type ListingService interface {
	ListStores(ctx context.Context, params query.Params, asUserID *int64) (domain.Page[domain.StoreView], error)
	ListUsers(ctx context.Context, params query.Params) (domain.Page[domain.UserView], error)
	GetUserDetail(ctx context.Context, userID int64) (domain.UserView, error)
	OwnerDashboard(ctx context.Context, ownerID int64) (domain.OwnerDashboard, error)
}

// RatingService accepts rating submissions.
type RatingService interface {
	SubmitRating(ctx context.Context, userID, storeID int64, value int) (service.SubmitResult, error)
}

// AdminService covers the administrative writes and totals.
type AdminService interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (domain.User, error)
	CreateStore(ctx context.Context, in service.CreateStoreInput) (domain.Store, error)
	Dashboard(ctx context.Context) (service.DashboardStats, error)
}

// Database is the health surface of the connection pool.
type Database interface {
	HealthCheck(ctx context.Context) error
	PoolStats() (store.PoolStats, bool)
}

// Deps are the collaborators the handlers call.
type Deps struct {
	DB      Database
	Listing ListingService
	Ratings RatingService
	Admin   AdminService
	Issuer  *auth.Issuer
	Metrics *metrics.Metrics
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	deps    Deps
	logger  *zap.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.deps.Issuer, s.logger))
		r.Use(recordIdentity)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleAdmin))
			r.Get("/dashboard", s.handleAdminDashboard)
			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Get("/users/{id}", s.handleGetUser)
			r.Get("/stores", s.handleAdminListStores)
			r.Post("/stores", s.handleCreateStore)
		})

		r.Route("/stores", func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleNormal))
			r.Get("/", s.handleUserListStores)
			r.Put("/{storeId}/rating", s.handleSubmitRating)
		})

		r.With(auth.RequireRole(domain.RoleStoreOwner)).Get("/owner/dashboard", s.handleOwnerDashboard)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status string           `json:"status"`
	Pool   *store.PoolStats `json:"pool,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.DB.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unavailable")
		return
	}

	resp := healthResponse{Status: "ok"}
	if stats, ok := s.deps.DB.PoolStats(); ok {
		resp.Pool = &stats
	}
	s.respondJSON(w, http.StatusOK, resp)
}
