package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/handlers"
)

func init() { Register(registerSettings, middleware.Timeout(apiTimeout)) }

func registerSettings(r chi.Router, d deps.Deps) {
	api := protected(r, d)
	api.Get("/api/settings", handlers.GetSettings(d))
	api.Put("/api/settings", handlers.PutSettings(d))
}
