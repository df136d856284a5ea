package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"tally/www/api"
)

// Authentication gates a route on the session's roles. The "anonymous"
// role lets unauthenticated callers through for public reads.
func Authentication(roles ...string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			username, user_roles := api.Authenticate(w, r)

			if username == "" {
				if slices.Contains(roles, "anonymous") {
					next(w, r)
					return
				}
				w.WriteHeader(http.StatusUnauthorized)
				d, _ := json.Marshal(map[string]any{"error": "unauthorized"})
				w.Write(d)
				return
			}

			for _, user_role := range user_roles {
				for _, allowed_role := range roles {
					if user_role == allowed_role {
						ctx := context.WithValue(r.Context(), "username", username)
						ctx = context.WithValue(ctx, "roles", user_roles)
						next(w, r.WithContext(ctx))
						return
					}
				}
			}
			w.WriteHeader(http.StatusForbidden)
			d, _ := json.Marshal(map[string]any{"error": "forbidden"})
			w.Write(d)
		}
	}
}
