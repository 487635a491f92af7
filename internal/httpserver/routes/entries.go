package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/handlers"
)

func init() { Register(registerEntries, middleware.Timeout(apiTimeout)) }

func registerEntries(r chi.Router, d deps.Deps) {
	api := protected(r, d)
	api.Get("/api/entries", handlers.ListEntries(d))
	api.Delete("/api/entries", handlers.ClearEntries(d))
	api.Get("/api/entries/{id}", handlers.GetEntry(d))
	api.Delete("/api/entries/{id}", handlers.DeleteEntry(d))
	api.Get("/api/entries/{id}/thumbnail", handlers.EntryThumbnail(d))
	api.Post("/api/entries/{id}/copy", handlers.CopyEntry(d))
	api.Post("/api/entries/{id}/pin", handlers.TogglePin(d))
}
