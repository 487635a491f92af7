package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/handlers"
)

func init() { Register(registerMonitor, middleware.Timeout(apiTimeout)) }

func registerMonitor(r chi.Router, d deps.Deps) {
	api := protected(r, d)
	api.Get("/api/monitor", handlers.Monitor(d))
	api.Post("/api/monitor/pause", handlers.PauseMonitor(d))
	api.Post("/api/monitor/resume", handlers.ResumeMonitor(d))
}
