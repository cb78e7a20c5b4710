package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nanalive/randomchat/internal/infra/appctx"
)

// GuestAuthMiddleware validates the guest token issued by /api/guest and
// stores the participant id it carries in the request context. The token
// comes from the Authorization header, or from the "token" query
// parameter for websocket dials where custom headers are not available.
func GuestAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing guest token"})
			}

			token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired guest token"})
			}

			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired guest token"})
			}

			participantID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid subject"})
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithParticipantID(c.Request().Context(), participantID),
				),
			)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	const prefix = "Bearer "

	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
