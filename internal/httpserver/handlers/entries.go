package handlers

import (
	"image/png"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/clipflow/internal/archive"
	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

type entriesResponse struct {
	Entries []*domain.Entry `json:"entries"`
	Count   int             `json:"count"`
	Paused  bool            `json:"paused"`
}

type pinResponse struct {
	ID       int64 `json:"id"`
	IsPinned bool  `json:"is_pinned"`
}

type clearResponse struct {
	Removed int `json:"removed"`
}

// ListEntries returns the history snapshot, pinned entries first.
func ListEntries(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(w, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		entries, err := d.History.Entries(r.Context(), limit)
		if err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		if entries == nil {
			entries = []*domain.Entry{}
		}

		writeJSON(w, http.StatusOK, entriesResponse{
			Entries: entries,
			Count:   len(entries),
			Paused:  d.History.Paused(),
		})
	}
}

func GetEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entryID(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		e, err := d.History.Entry(r.Context(), id)
		if err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// EntryThumbnail renders a PNG thumbnail of an Image entry.
func EntryThumbnail(d deps.Deps) http.HandlerFunc {
	size := d.ThumbnailSize
	if size <= 0 {
		size = archive.DefaultThumbnailSize
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entryID(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		e, err := d.History.Entry(r.Context(), id)
		if err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		if !e.IsImage() || d.Images == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "entry has no image"})
			return
		}

		img, err := d.Images.Load(e.ImagePath)
		if err != nil {
			d.Logger.Warn("failed to load archived image",
				logger.Int64("id", id),
				logger.String("path", e.ImagePath),
				logger.Error(err))
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "image file unavailable"})
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=300")
		if err := png.Encode(w, archive.CreateThumbnail(img, size)); err != nil {
			d.Logger.Debug("failed to write thumbnail", logger.Error(err))
		}
	}
}

// CopyEntry puts an entry back on the clipboard.
func CopyEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entryID(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		if err := d.History.CopyEntry(r.Context(), id); err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func TogglePin(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entryID(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		pinned, err := d.History.TogglePin(r.Context(), id)
		if err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pinResponse{ID: id, IsPinned: pinned})
	}
}

func DeleteEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entryID(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		if err := d.History.Delete(r.Context(), id); err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearEntries removes every unpinned entry.
func ClearEntries(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.History.ClearAll(r.Context())
		if err != nil {
			writeError(w, d.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clearResponse{Removed: n})
	}
}
