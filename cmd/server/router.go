package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"haulr-dispatch/internal/handlers"
	"haulr-dispatch/internal/middleware"
	"haulr-dispatch/internal/remote"
	"haulr-dispatch/internal/websocket"
)

type accountStore interface {
	handlers.DispatcherFinder
	handlers.DeviceRegistry
}

func newRouter(store remote.Client, accounts accountStore, listener handlers.SyncListener, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(store, accounts))

	// WebSocket change feed (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(hub))

	// Sync surface (drivers and dispatchers)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth)
		r.Use(middleware.RequireRole("driver", "dispatcher"))

		r.Get("/getAll", handlers.GetAll(store))
		r.Post("/sync", handlers.Sync(store, listener))
		r.Post("/devices", handlers.RegisterDevice(accounts))
	})

	return r
}
