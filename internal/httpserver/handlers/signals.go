package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clipflow/internal/collab"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

type signalResponse struct {
	Signal string `json:"signal"`
	Source string `json:"source"`
}

// RaiseSignal lets an external hotkey or tray helper raise a collaborator
// signal.
func RaiseSignal(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "signal")
		sig, ok := collab.ParseSignal(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown signal " + name})
			return
		}

		for _, e := range d.Collaborators {
			if !e.Accepts(sig) {
				continue
			}
			if !e.Raise(sig) {
				d.Logger.Warn("collaborator signal queue full",
					logger.String("signal", name),
					logger.String("source", e.Name()))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "signal queue full, retry later"})
				return
			}
			d.Logger.Info("collaborator signal raised via endpoint",
				logger.String("signal", name),
				logger.String("source", e.Name()),
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, signalResponse{Signal: name, Source: e.Name()})
			return
		}

		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no collaborator handles " + name})
	}
}
