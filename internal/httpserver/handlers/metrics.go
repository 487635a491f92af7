package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
)

// Metrics exposes the pipeline collectors in the Prometheus text format.
func Metrics(d deps.Deps) http.Handler {
	if d.Gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
}
