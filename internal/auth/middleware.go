package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type contextKey struct{}

var identityKey contextKey

// IdentityFromContext returns the identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RequireTenant rejects requests without a valid tenant token and stores
// the resolved identity in the request context.
func (a *TokenAuthority) RequireTenant(next http.HandlerFunc) http.HandlerFunc {
	return a.require(next, a.Authenticate)
}

// RequireCustomer additionally demands a customer login token.
func (a *TokenAuthority) RequireCustomer(next http.HandlerFunc) http.HandlerFunc {
	return a.require(next, a.AuthenticateCustomer)
}

func (a *TokenAuthority) require(next http.HandlerFunc, authenticate func(string) (Identity, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r.Header.Get("Authorization"))
		if err != nil {
			status := http.StatusForbidden
			if errors.Is(err, ErrMissingCredential) {
				status = http.StatusUnauthorized
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}
