package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/utils"
)

const userIDKey = "userID"

// requireAuth gates a route behind a Bearer token and stashes the caller's
// user id on the echo context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.JSON(http.StatusUnauthorized, utils.ErrJSON("missing bearer token"))
		}

		claims, err := s.auth.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, utils.ErrJSON("invalid or expired token"))
		}

		c.Set(userIDKey, claims.Subject)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
