package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/railswap/railswap/internal/models"
)

// Middleware resolves the request actor. A valid Bearer token wins; otherwise
// the explicit X-Actor-Role header selects buyer or seller, and the absence of
// both yields an anonymous buyer. Requests are never rejected here: the
// marketplace predates real authentication and every endpoint is public.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := Actor{Role: models.RoleBuyer}

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					resolved, err := resolver.Resolve(parts[1])
					if err != nil {
						slog.Warn("failed to resolve actor token", "error", err)
					} else {
						actor = resolved
					}
				}
			} else if role := models.SenderRole(r.Header.Get("X-Actor-Role")); role == models.RoleBuyer || role == models.RoleSeller {
				actor.Role = role
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
