package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/jerif/verification-api/internal/domain"
)

const clientKey contextKey = "client"

// ClientIP resolves the caller once per request. Forwarding headers are only
// honoured when trustForwarded is set; otherwise the peer address is used, so
// a client cannot pick its own rate-limit bucket.
func ClientIP(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := resolveClient(r, trustForwarded)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey, c)))
		})
	}
}

// ClientFromRequest identifies the caller for rate limiting and audit logs.
// Without the ClientIP middleware it falls back to the peer address.
func ClientFromRequest(r *http.Request) domain.Client {
	if c, ok := r.Context().Value(clientKey).(domain.Client); ok {
		return c
	}
	return resolveClient(r, false)
}

func resolveClient(r *http.Request, trustForwarded bool) domain.Client {
	ip := realIP(r, trustForwarded)
	if ip == "" {
		ip = "unknown"
	}
	ua := r.UserAgent()
	if ua == "" {
		ua = "unknown"
	}
	return domain.Client{IP: ip, UserAgent: ua}
}

// realIP returns the host part of RemoteAddr. With trustForwarded it prefers
// the first X-Forwarded-For entry, then X-Real-Ip.
func realIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
