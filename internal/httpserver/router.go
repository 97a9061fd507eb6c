package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"courtportal/internal/config"
	"courtportal/internal/domain"
	"courtportal/internal/metrics"
	"courtportal/internal/security"
	"courtportal/internal/service"
	"courtportal/internal/store/sqlite"
	"courtportal/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, hub *ws.Hub, tokenSvc *security.TokenService, passwordHasher *security.PasswordHasher, encryptor *security.Encryptor) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(countRequests)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	groupRepo := sqlite.NewGroupRepo(db)
	guestRepo := sqlite.NewGuestRepo(db)
	noticeRepo := sqlite.NewNoticeRepo(db)
	eventRepo := sqlite.NewEventRepo(db)
	swearingRepo := sqlite.NewSwearingRepo(db)
	courtInfoRepo := sqlite.NewCourtInfoRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	channelSvc := service.NewChannelService(userRepo, groupRepo)
	msgSvc := service.NewMessageService(msgRepo, groupRepo, userRepo, encryptor, cfg.MaxHistoryMessages)
	registrySvc := service.NewRegistryService(guestRepo, noticeRepo, eventRepo, swearingRepo, courtInfoRepo)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			limiter := newLoginLimiter(cfg.LoginRatePerMinute)
			r.With(limiter.middleware).Post("/login", handleLogin(authSvc))
			r.With(limiter.middleware).Post("/reset-password", handleResetPassword(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Post("/auth/register", handleRegister(authSvc))
			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userRepo))
				r.Get("/me", handleMe())
				r.Patch("/me", handleUpdateProfile(authSvc))
				r.Get("/{userID}", handleGetUser(authSvc))
				r.Patch("/{userID}", handleUpdateUser(authSvc))
				r.Delete("/{userID}", handleDeactivateUser(authSvc))
				r.Post("/{userID}/reset-token", handleIssueResetToken(authSvc))
			})

			// Channel directory and messages
			r.Get("/channels", handleListChannels(channelSvc))
			r.Post("/groups", handleCreateGroup(channelSvc))
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", handleHistory(msgSvc))
				r.Post("/", handleCreateMessage(msgSvc))
				r.Post("/read", handleMarkRead(msgSvc))
				r.Patch("/{messageID}", handleEditMessage(msgSvc))
				r.Delete("/{messageID}", handleDeleteMessage(msgSvc))
			})

			// Registry
			r.Route("/guests", func(r chi.Router) {
				r.Get("/", handleListGuests(registrySvc))
				r.Post("/", handleRegisterGuest(registrySvc))
				r.Put("/{guestID}", handleUpdateGuest(registrySvc))
				r.Delete("/{guestID}", handleDeleteGuest(registrySvc))
			})
			r.Route("/notices", func(r chi.Router) {
				r.Get("/", handleListNotices(registrySvc))
				r.Post("/", handlePublishNotice(registrySvc))
				r.Delete("/{noticeID}", handleDeleteNotice(registrySvc))
			})
			r.Route("/events", func(r chi.Router) {
				r.Get("/", handleListEvents(registrySvc))
				r.Post("/", handleScheduleEvent(registrySvc))
				r.Put("/{eventID}", handleUpdateEvent(registrySvc))
				r.Delete("/{eventID}", handleDeleteEvent(registrySvc))
			})
			r.Route("/oath", func(r chi.Router) {
				r.Post("/", handleSaveSwearingPreference(registrySvc))
				r.Get("/me", handleMySwearingPreference(registrySvc))
				r.Get("/", handleListSwearingPreferences(registrySvc))
				r.Get("/{userID}", handleSwearingPreferenceFor(registrySvc))
				r.Put("/{userID}", handleSetSwearingPreference(registrySvc))
				r.Delete("/{userID}", handleDeleteSwearingPreference(registrySvc))
			})
			r.Route("/court-info", func(r chi.Router) {
				r.Get("/", handleListCourtInfo(registrySvc))
				r.Post("/", handleUpsertCourtInfo(registrySvc))
				r.Delete("/{infoID}", handleDeleteCourtInfo(registrySvc))
			})

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(cfg))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, authSvc, channelSvc, msgSvc, cfg.CORSOrigins))

	return r
}

// countRequests records per-request metrics after the handler runs.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := strconv.Itoa(ww.Status()/100) + "xx"
		metrics.HTTPRequests.WithLabelValues(r.Method, status).Inc()
	})
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinel errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
