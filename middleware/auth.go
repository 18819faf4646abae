package middleware

import (
	"context"
	"net/http"

	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/token"
	"github.com/kevinaaaquil/bookswap/utils"
)

type contextKey string

const userKey contextKey = "user"

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=middleware

// Verifier resolves a bearer token to the active user it was issued to.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

// Auth rejects requests without a valid bearer token and stores the caller in the
// request context.
func Auth(v Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := token.FromRequest(r)
			if err != nil {
				utils.Fail(w, http.StatusUnauthorized, utils.CodeNotAuthorized, "not authorized, no token")
				return
			}
			user, err := v.VerifyToken(r.Context(), tok)
			if err != nil {
				logger.Log.Debugw("authorization failed", "error", err)
				utils.Fail(w, http.StatusUnauthorized, utils.CodeNotAuthorized, "not authorized, token failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user stored by Auth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
