package websocket

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := "https://chat.example.com/lobby"

	tests := []struct {
		name          string
		allowed       string
		origin        string
		host          string
		isDevelopment bool
		want          bool
	}{
		{"empty origin", allowed, "", "relay.internal:3501", false, true},
		{"same host", "", "http://relay.internal:3501", "relay.internal:3501", false, true},
		{"configured origin", allowed, "https://chat.example.com", "relay.internal:3501", false, true},
		{"wildcard", "*", "https://anything.example.org", "relay.internal:3501", false, true},

		{"different host", allowed, "https://evil.com", "relay.internal:3501", false, false},
		{"different port", allowed, "https://chat.example.com:9090", "relay.internal:3501", false, false},
		{"http instead of https", allowed, "http://chat.example.com", "relay.internal:3501", false, false},
		{"nothing configured", "", "https://chat.example.com", "relay.internal:3501", false, false},

		{"localhost dev", "", "http://localhost:8080", "relay.internal:3501", true, true},
		{"127.0.0.1 dev", "", "http://127.0.0.1:3000", "relay.internal:3501", true, true},
		{"localhost prod rejected", "", "http://localhost:8080", "relay.internal:3501", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(tt.allowed, tt.isDevelopment)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/api/connect", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{"full URL with path", "https://example.com/lobby", "https://example.com"},
		{"URL with port", "https://example.com:8443/path", "https://example.com:8443"},
		{"http URL", "http://localhost:8080/", "http://localhost:8080"},
		{"empty string", "", ""},
		{"no host", "mailto:user@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOrigin(tt.rawURL))
		})
	}
}
