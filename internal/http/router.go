package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/config"
	httpmiddleware "github.com/assemblymk1/localgov/internal/http/middleware"
	"github.com/assemblymk1/localgov/internal/service"
)

// ReadyCheck is a dependency pinged by /ready.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps carries the services the router exposes.
type Deps struct {
	Auth      *service.AuthService
	Dashboard *service.DashboardService
	Processes *service.ProcessService
	Rates     *service.RatesService
	Checks    []ReadyCheck
}

type Handler struct {
	auth          *service.AuthService
	dashboard     *service.DashboardService
	processes     *service.ProcessService
	rates         *service.RatesService
	checks        []ReadyCheck
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter builds the chi router with every route of the API.
func NewRouter(cfg *config.Config, deps Deps) (http.Handler, error) {
	if deps.Auth == nil || deps.Dashboard == nil || deps.Processes == nil || deps.Rates == nil {
		return nil, errors.New("router: every service is required")
	}

	h := &Handler{
		auth:          deps.Auth,
		dashboard:     deps.Dashboard,
		processes:     deps.Processes,
		rates:         deps.Rates,
		checks:        deps.Checks,
		publicLimiter: httpmiddleware.NewRateLimiter("public", cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter("resident", cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/", h.Index)
		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Register)
			auth.Post("/login", h.Login)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.auth.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/user/profile", h.Profile)
		private.Get("/dashboard", h.Dashboard)
		private.Get("/dashboard/", h.Dashboard)
		private.Get("/rates/properties", h.RatesProperties)

		private.Route("/process", func(p chi.Router) {
			p.Get("/", h.ListProcesses)
			p.Post("/", h.CreateProcess)
			p.Get("/{id}", h.GetProcess)
			p.Put("/{id}", h.UpdateProcess)
			p.Delete("/{id}", h.DeleteProcess)
		})
	})

	adminRoutes := func(admin chi.Router) {
		admin.Get("/all", h.AdminListAll)
		admin.Post("/update_status/{id}", h.AdminUpdateStatus)
	}

	switch cfg.AdminAccess {
	case config.AdminAccessOpen:
		log.Warn().Msg("admin routes are open to unauthenticated callers (ADMIN_ACCESS=open)")
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.IPRateLimit(h.publicLimiter))
			admin.Route("/admin", adminRoutes)
		})
	default:
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.Auth(h.auth.JWT()))
			admin.Use(httpmiddleware.RequireRoles(service.RoleAdmin))
			admin.Use(httpmiddleware.RequireAdmin(h.auth.IsAdmin))
			admin.Use(httpmiddleware.UserRateLimit(h.authLimiter))
			admin.Route("/admin", adminRoutes)
		})
	}

	return r, nil
}

// Index answers the root path with a plain banner.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("LocalGov API running!"))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready pings Postgres and, when configured, Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			healthy = false
			status[check.Name] = err.Error()
			continue
		}
		status[check.Name] = "ok"
	}

	if !healthy {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "checks": status})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "checks": status})
}
