package api

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const accountIDKey ctxKey = 0

// requireAuth verifies the access token from the Authorization header or the
// access cookie and stores the account id on the request context. This is
// the ownership check the guarded routes rely on.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(accessCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "access token is required")
			return
		}

		accountID, err := s.verifier.VerifyAccessToken(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func accountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}
