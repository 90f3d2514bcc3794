package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// ClaimsFromContext returns the claims stored by the middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// ClientIDFromContext returns the authenticated client's id.
func ClientIDFromContext(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Middleware rejects requests without a valid, unrevoked Bearer token and
// stores the claims in the request context.
func Middleware(manager *Manager, revocations *RevocationStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, manager, revocations)
			if err != nil {
				unauthorized(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, manager *Manager, revocations *RevocationStore) (*Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := manager.ParseToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		log.Printf("WARN: revocation check failed: %v", err)
		return nil, ErrTokenInvalid
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	msg := "invalid or missing credentials"
	switch err {
	case ErrTokenExpired:
		msg = "token expired"
	case ErrTokenRevoked:
		msg = "token revoked"
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
