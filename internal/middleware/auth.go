package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"peakform/amsbridge/internal/db/repositories"
)

// AuthMiddleware accepts either a bearer token signed with JWT_SECRET or
// an X-API-Key that is present and active in the keys table. Either one
// authorizes the request; both absent rejects it.
func AuthMiddleware(keysRepo *repositories.KeysRepo) func(http.Handler) http.Handler {
	secret := []byte(os.Getenv("AUTH_JWT_SECRET"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			apiKey := r.Header.Get("X-API-Key")

			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				raw := strings.TrimPrefix(authHeader, "Bearer ")
				token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return secret, nil
				})
				if err != nil || !token.Valid {
					http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
					return
				}

			case apiKey != "":
				if keysRepo == nil {
					http.Error(w, "Unauthorized. API keys not configured", http.StatusUnauthorized)
					return
				}
				keyRes, err := keysRepo.GetStatus(r.Context(), apiKey)
				if err != nil {
					http.Error(w, "Unauthorized. Invalid API Key", http.StatusUnauthorized)
					return
				}
				if !keyRes.Status {
					http.Error(w, "Unauthorized. Inactive API Key", http.StatusUnauthorized)
					return
				}

			default:
				http.Error(w, "Unauthorized. Missing credentials", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
