package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyClientInfo struct{}

// ClientInfo summarizes the submitting client for audit enrichment. Raw
// User-Agent strings are not persisted; only the parsed summary is.
type ClientInfo struct {
	Browser  string
	Version  string
	OS       string
	IsBot    bool
	IsMobile bool
}

// ClientMetadata extracts the client IP and a parsed User-Agent summary and
// adds them to the context for audit enrichment. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIPFromRequest(r))

		ua := useragent.New(r.Header.Get("User-Agent"))
		browser, version := ua.Browser()
		ctx = context.WithValue(ctx, contextKeyClientInfo{}, ClientInfo{
			Browser:  browser,
			Version:  version,
			OS:       ua.OS(),
			IsBot:    ua.Bot(),
			IsMobile: ua.Mobile(),
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetClientInfo retrieves the parsed client summary from the context.
func GetClientInfo(ctx context.Context) ClientInfo {
	if info, ok := ctx.Value(contextKeyClientInfo{}).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}

// clientIPFromRequest extracts the real client IP, handling proxies.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return ""
}
