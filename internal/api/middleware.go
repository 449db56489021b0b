package api

import (
	"net/http"
	"strings"
)

// withAuth guards a handler with bearer token authentication. When no
// token is configured the check is skipped entirely; the server warns
// about that once at startup.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthDisabled() {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			s.logger.Warn("missing authorization header", "remote_addr", r.RemoteAddr)
			s.writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			s.logger.Warn("invalid authorization format", "remote_addr", r.RemoteAddr)
			s.writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		if token != s.cfg.BearerToken {
			s.logger.Warn("invalid bearer token", "remote_addr", r.RemoteAddr)
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r)
	}
}

// bearerToken extracts the credential from a "Bearer <token>" header
// value. The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
