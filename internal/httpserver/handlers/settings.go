package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// maxSettingsBody bounds PUT /api/settings payloads.
const maxSettingsBody = 64 << 10

func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Settings.Get())
	}
}

// PutSettings replaces the settings document. Fields missing from the body
// keep their current value.
func PutSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := d.Settings.Get()

		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&next); err != nil {
			badRequest(w, "invalid settings document: "+err.Error())
			return
		}

		if err := d.Settings.Save(next); err != nil {
			writeError(w, d.Logger, r, err)
			return
		}

		d.Logger.Info("settings updated",
			logger.Int("history_limit", next.HistoryLimit),
			logger.String("theme", next.Theme))
		writeJSON(w, http.StatusOK, next)
	}
}
