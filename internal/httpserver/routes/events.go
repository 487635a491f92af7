package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/handlers"
)

// no timeout: the stream stays open until the client leaves
func init() { Register(registerEvents) }

func registerEvents(r chi.Router, d deps.Deps) {
	protected(r, d).Get("/api/events", handlers.Events(d))
}
