package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhours/timebank/internal/adapters/relay"
	"github.com/openhours/timebank/internal/application"
)

// Handler is the HTTP adapter entrypoint for marketplace use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	hub     *relay.Hub
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service, hub *relay.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// NewRouter registers marketplace HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.profile)
			r.Delete("/account", handler.deleteAccount)
		})
	})

	r.Route("/services", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/", handler.createService)
		r.Get("/others", handler.listOtherServices)
		r.Get("/mine", handler.listMyServices)
		r.Post("/request/{service_id}", handler.requestService)
		r.Get("/requested", handler.listOutgoingRequests)
		r.Delete("/request/{request_id}", handler.cancelRequest)
		r.Get("/requests/{service_id}", handler.listServiceRequests)
		r.Put("/request/{request_id}", handler.decideRequest)
	})

	r.Route("/timebank", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/history", handler.history)
	})

	r.Route("/chat", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/history/{user_id}", handler.chatHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/ws", handler.websocket)
	})

	return r
}
