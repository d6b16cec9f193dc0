package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/auth"
)

type contextKey string

const (
	ContextKeyIdentity contextKey = "identity"
	ContextKeyRoles    contextKey = "roles"
)

// Auth checks the bearer token and attaches the resident identity to the request.
// It does not check that the resident still exists.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "authorization header missing")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 {
				log.Warn().Str("path", r.URL.Path).Msg("auth: malformed authorization header")
				writeError(w, http.StatusUnauthorized, "AUTH", "malformed authorization header")
				return
			}
			if !strings.EqualFold(parts[0], "Bearer") {
				log.Warn().Str("path", r.URL.Path).Str("scheme", parts[0]).Msg("auth: unsupported scheme")
				writeError(w, http.StatusUnauthorized, "AUTH", "authorization scheme must be Bearer")
				return
			}

			claims, identity, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "token has expired"
				}
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("auth: token rejected")
				writeError(w, http.StatusUnauthorized, "AUTH", msg)
				return
			}

			if rl := requestLogFrom(r.Context()); rl != nil {
				rl.residentID = identity.ResidentID
			}
			ctx := WithIdentity(r.Context(), identity, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity stores the authenticated resident in ctx.
func WithIdentity(ctx context.Context, identity auth.Identity, roles []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// GetIdentity returns the authenticated resident, if any.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	val, ok := ctx.Value(ContextKeyIdentity).(auth.Identity)
	return val, ok
}

// ResidentID returns the authenticated resident id, or 0.
func ResidentID(ctx context.Context) int64 {
	id, _ := GetIdentity(ctx)
	return id.ResidentID
}

// GetRoles returns the token roles.
func GetRoles(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyRoles).([]string)
	return val
}

// RequireRoles lets the request through when the token carries one of the roles.
func RequireRoles(requiredRoles ...string) func(http.Handler) http.Handler {
	normalized := make([]string, 0, len(requiredRoles))
	for _, role := range requiredRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role != "" {
			normalized = append(normalized, role)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, role := range GetRoles(r.Context()) {
				roleUpper := strings.ToUpper(strings.TrimSpace(role))
				for _, required := range normalized {
					if roleUpper == required {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			log.Warn().Int64("resident_id", ResidentID(r.Context())).Str("path", r.URL.Path).Msg("auth: missing role")
			writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		})
	}
}

// AdminLookup reports whether a resident currently holds admin rights.
type AdminLookup func(ctx context.Context, residentID int64) (bool, error)

// RequireAdmin re-checks the admin flag on every request, so a revoked admin
// loses access before the token expires.
func RequireAdmin(isAdmin AdminLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ResidentID(r.Context())
			ok, err := isAdmin(r.Context(), id)
			if err != nil {
				log.Error().Err(err).Int64("resident_id", id).Str("path", r.URL.Path).Msg("auth: admin lookup failed")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to verify permissions")
				return
			}
			if !ok {
				log.Warn().Int64("resident_id", id).Str("path", r.URL.Path).Msg("auth: admin rights revoked")
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func subjectKey(ctx context.Context) string {
	id := ResidentID(ctx)
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": message,
		"code":    code,
	})
}
