package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/api"
	"github.com/cloo-solutions/skilldex/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// AuthValidator resolves a bearer token to the principal it identifies.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticTokens validates bearer tokens against a fixed list from configuration.
type StaticTokens struct {
	digests [][32]byte
}

// NewStaticTokens creates a validator for the given tokens. Blank entries are ignored.
func NewStaticTokens(tokens []string) *StaticTokens {
	s := &StaticTokens{}
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			s.digests = append(s.digests, sha256.Sum256([]byte(t)))
		}
	}
	return s
}

// Enabled reports whether any token is configured.
func (s *StaticTokens) Enabled() bool {
	return s != nil && len(s.digests) > 0
}

// ValidateAPIKey compares digests in constant time and names the caller by token position.
func (s *StaticTokens) ValidateAPIKey(_ context.Context, token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	match := -1
	for i, d := range s.digests {
		if subtle.ConstantTimeCompare(d[:], digest[:]) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return "", domain.ErrInvalidAPIKey
	}
	return fmt.Sprintf("token-%d", match+1), nil
}

// APIKeyAuth requires a valid bearer token. A nil validator disables authentication.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			principal, err := validator.ValidateAPIKey(r.Context(), strings.TrimSpace(token))
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal, or "" for anonymous requests.
func GetPrincipal(ctx context.Context) string {
	principal, _ := ctx.Value(PrincipalKey).(string)
	return principal
}
