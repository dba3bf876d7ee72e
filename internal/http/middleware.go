package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	headerFamilyID = "X-Family-ID"
	headerUserID   = "X-User-ID"
)

type identityKey struct{}

type identity struct {
	familyID string
	userID   string
}

// requireIdentity reads the caller's family and member from headers set by
// the upstream authenticating proxy. Requests without both get 401.
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity{
			familyID: strings.TrimSpace(r.Header.Get(headerFamilyID)),
			userID:   strings.TrimSpace(r.Header.Get(headerUserID)),
		}
		if id.familyID == "" || id.userID == "" {
			writeError(w, http.StatusUnauthorized, "missing family or user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func familyID(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id.familyID
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id.userID
}

// memberKey rate limits per family member.
func memberKey(r *http.Request) string {
	f, u := familyID(r.Context()), userID(r.Context())
	if f == "" || u == "" {
		return ""
	}
	return f + "/" + u
}

// accessLog logs every completed request; 4xx at warn, 5xx at error.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.events.LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), extractClientIP(r))
	})
}

// trustedProxies defines networks that are trusted to set forwarding headers.
var trustedProxies = []*net.IPNet{
	parseCIDR("127.0.0.0/8"),    // localhost
	parseCIDR("10.0.0.0/8"),     // private networks
	parseCIDR("172.16.0.0/12"),  // private networks
	parseCIDR("192.168.0.0/16"), // private networks
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("failed to parse trusted proxy CIDR " + cidr + ": " + err.Error())
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP extracts the real client IP, honouring forwarded headers
// only from trusted proxies.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}
