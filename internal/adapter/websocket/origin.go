package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin returns a CheckOrigin function for the websocket upgrader.
// It allows empty origins (non-browser clients), origins matching the request host
// (the bundled web client), and allowedOrigin when set; "*" allows any origin.
// When isDevelopment is true, localhost origins are additionally allowed.
func NewCheckOrigin(allowedOrigin string, isDevelopment bool) func(r *http.Request) bool {
	allowAll := allowedOrigin == "*"
	allowed := extractOrigin(allowedOrigin)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" || allowAll {
			return true
		}

		if sameHost(origin, r.Host) {
			return true
		}

		if allowed != "" && origin == allowed {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
