package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
)

type monitorResponse struct {
	Paused bool `json:"paused"`
}

func Monitor(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, monitorResponse{Paused: d.History.Paused()})
	}
}

func PauseMonitor(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.History.PauseMonitoring()
		writeJSON(w, http.StatusOK, monitorResponse{Paused: d.History.Paused()})
	}
}

func ResumeMonitor(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.History.ResumeMonitoring()
		writeJSON(w, http.StatusOK, monitorResponse{Paused: d.History.Paused()})
	}
}
