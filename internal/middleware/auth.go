package middleware

import (
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware resolves the session token into the request context.
// Requests without a token pass through anonymously; a token that fails to
// parse is rejected with 401.
func AuthMiddleware(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("rejected session token",
					zap.String("layer", "middleware"),
					zap.Error(err),
				)
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := utils.GetUserIDFromContext(c.Request().Context()); !ok {
				return c.JSON(http.StatusUnauthorized, envelope(http.StatusUnauthorized, "authentication required"))
			}
			return next(c)
		}
	}
}

// RequireRole rejects anonymous requests and callers whose role is not
// listed.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := utils.GetUserIDFromContext(ctx); !ok {
				return c.JSON(http.StatusUnauthorized, envelope(http.StatusUnauthorized, "authentication required"))
			}

			role := utils.GetUserRoleFromContext(ctx)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, envelope(http.StatusForbidden, "insufficient role"))
		}
	}
}

func envelope(status int, message string) map[string]any {
	return map[string]any{"success": false, "status": status, "message": message}
}
