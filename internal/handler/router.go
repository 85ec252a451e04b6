package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/repository"
	"github.com/healthtic/internal/ws"
)

// Deps: хранилища и хаб, из которых собирается dev-бэкенд.
type Deps struct {
	Users    *repository.UserRepository
	Tokens   *repository.TokenRepository
	Messages *repository.MessageRepository
	Devices  *repository.DeviceRepository
	Health   *repository.HealthRepository
	Hub      *ws.Hub

	CORSAllowedOrigins string
}

// NewRouter собирает HTTP API. Пути принимаются и с завершающим слешем, и без.
func NewRouter(d Deps) http.Handler {
	authH := NewAuthHandler(d.Users, d.Tokens)
	contactH := NewContactHandler(d.Users)
	var notifier Notifier
	if d.Hub != nil {
		notifier = d.Hub
	}
	msgH := NewMessageHandler(d.Messages, d.Users, notifier)
	devH := NewDeviceHandler(d.Devices, d.Users, d.Health)
	healthH := NewHealthHandler(d.Health)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(chimw.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(d.CORSAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Device-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitAPI)
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/devices/data", devH.Ingest)

		r.Group(func(r chi.Router) {
			r.Use(middleware.TokenAuth(d.Tokens))
			r.Use(middleware.RateLimitUser)
			r.Get("/users/contacts", contactH.List)

			r.Get("/chat/messages", msgH.List)
			r.Post("/chat/messages", msgH.Send)
			r.Get("/chat/messages/conversations", msgH.Conversations)
			r.Post("/chat/messages/mark_as_read", msgH.MarkAsRead)

			r.Group(func(r chi.Router) {
				r.Use(devH.patientOnly)
				r.Get("/devices/my-devices", devH.List)
				r.Post("/devices/create", devH.Create)
				r.Put("/devices/{id}/update", devH.Update)
				r.Delete("/devices/{id}/delete", devH.Delete)
				r.Post("/devices/{id}/regenerate-key", devH.RegenerateKey)
			})

			r.Get("/health/dashboard", healthH.Dashboard)
			r.Get("/health/prediction", healthH.Prediction)
			r.Get("/alerts/alerts", healthH.Alerts)
		})
	})

	if d.Hub != nil {
		wsH := NewWSHandler(d.Hub, d.CORSAllowedOrigins)
		r.With(middleware.TokenAuth(d.Tokens)).Get("/ws", wsH.ServeWS)
	}
	return r
}

func splitOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
