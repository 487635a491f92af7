package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/handlers"
)

func init() { Register(registerSignals, middleware.Timeout(apiTimeout)) }

func registerSignals(r chi.Router, d deps.Deps) {
	protected(r, d).Post("/api/signals/{signal}", handlers.RaiseSignal(d))
}
