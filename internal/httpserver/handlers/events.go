package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// DefaultHeartbeat is the SSE keep-alive interval.
const DefaultHeartbeat = 30 * time.Second

// Events streams the change feed as server-sent events. Each event carries
// the change kind only; clients refetch /api/entries.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// the stream outlives the server's write timeout
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		if err := rc.Flush(); err != nil {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		events, cancel := d.History.Subscribe()
		defer cancel()

		d.Logger.Debug("change feed subscriber connected",
			logger.String("remote_ip", r.RemoteAddr))
		defer d.Logger.Debug("change feed subscriber disconnected",
			logger.String("remote_ip", r.RemoteAddr))

		fmt.Fprintf(w, "event: connected\ndata: {\"paused\":%t}\n\n", d.History.Paused())
		_ = rc.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-d.Closing:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					d.Logger.Warn("failed to encode change event", logger.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Kind, data); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case t := <-ticker.C:
				if _, err := fmt.Fprintf(w, "event: heartbeat\ndata: {\"timestamp\":%d}\n\n", t.Unix()); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}
