package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront_server/lib"

	"github.com/MonkyMars/gecho"
)

// Context keys for storing admin data in request context
type contextKey string

const ClaimsContextKey contextKey = "claims"

// AdminAuthMiddleware protects routes to bearer tokens carrying the admin role
func (mw *Middleware) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := lib.BearerToken(r)
		if err != nil {
			gecho.Unauthorized(w, gecho.WithMessage("Invalid or missing access token"), gecho.Send())
			return
		}

		claims, err := lib.ParseAdminToken(token, mw.cfg.Auth.AdminTokenSecret, mw.cfg.Auth.AdminTokenIssuer)
		if err != nil {
			mw.logger.Warn("Failed to parse admin token", gecho.Field("error", err))
			msg := "Invalid or missing access token"
			if errors.Is(err, lib.ErrExpiredToken) {
				msg = "Access token expired"
			}
			gecho.Unauthorized(w, gecho.WithMessage(msg), gecho.Send())
			return
		}

		if claims.Role != mw.cfg.Auth.AdminRole {
			mw.logger.Warn("Non-admin token attempted to access admin route", gecho.Field("sub", claims.Subject), gecho.Field("role", claims.Role))
			gecho.Forbidden(w, gecho.WithMessage("Admin access required"), gecho.Send())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext is a helper function to extract the admin claims from request context
func GetClaimsFromContext(ctx context.Context) (*lib.AdminClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*lib.AdminClaims)
	return claims, ok
}
