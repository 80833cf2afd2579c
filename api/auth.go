/*
auth.go - Trainer bearer-token middleware

The trainer-scoped routes derive the trainer id from a signed bearer token
rather than a request parameter, so a trainer can only read their own client
list. Token issuance and sessions are outside this service; the middleware
only verifies the HMAC signature and extracts the trainer_id claim.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const trainerIDKey contextKey = "trainer_id"

// TrainerAuth verifies the Authorization bearer token and stores the
// trainer id in the request context.
func TrainerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
				func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
					}
					return []byte(secret), nil
				})
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			// JSON numbers decode as float64.
			raw, ok := claims["trainer_id"].(float64)
			if !ok || raw <= 0 {
				writeError(w, http.StatusUnauthorized, "token carries no trainer identity")
				return
			}

			ctx := context.WithValue(r.Context(), trainerIDKey, int64(raw))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TrainerFromContext returns the authenticated trainer id, if any.
func TrainerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(trainerIDKey).(int64)
	return id, ok
}

// TrainerToken signs a token for the given trainer id. Used by tests and
// local tooling; production tokens come from the identity service.
func TrainerToken(secret string, trainerID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"trainer_id": trainerID})
	return token.SignedString([]byte(secret))
}
