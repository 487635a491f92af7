package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// EnforceHost allows a request only if its Host header matches one of the
// allowed hosts. Patterns may be wildcards ("*.example.com") and match any
// port unless they carry one. An empty list disables the check.
//
// A loopback API is reachable from any web page through DNS rebinding; the
// Host check is what closes that hole.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		log.Debug("host check disabled")
		return func(next http.Handler) http.Handler { return next }
	}

	patterns := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			patterns = append(patterns, h)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(r.Host)
			for _, pattern := range patterns {
				if matchHost(host, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn("host header rejected",
				logger.String("host", r.Host),
				logger.String("path", r.URL.Path))
			w.WriteHeader(http.StatusForbidden)
		})
	}
}

// matchHost reports whether host (as sent in the Host header) matches pattern.
func matchHost(host, pattern string) bool {
	if host == pattern {
		return true
	}

	// a pattern without a port matches every port
	if _, _, err := net.SplitHostPort(pattern); err != nil {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")
		pattern = strings.Trim(pattern, "[]")
	}

	if host == pattern {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix)
	}
	return false
}
