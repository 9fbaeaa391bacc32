package middleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/services"
)

// SessionAuth protects the interactive banking routes with the session JWT
// issued at login. The token is read from the session cookie or a bearer
// header.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "cookie:voxbank_session,header:Authorization:Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &services.SessionClaims{}
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*services.SessionClaims)
			if !ok || claims.TokenType != services.TokenTypeSession {
				return
			}
			if userID, err := uuid.Parse(claims.UserID); err == nil {
				ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
		},
	})
}

// RequireSessionUser rejects requests where SessionAuth did not resolve a
// user id, which happens when an agent token is presented on a session route.
func RequireSessionUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := common.GetUserIDFromContext(c.Request().Context()); !ok {
			return common.SendUnauthorizedError(c)
		}
		return next(c)
	}
}
