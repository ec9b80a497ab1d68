package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/auth"
	"narrativeiq/pkg/store"
	"narrativeiq/pkg/utils"
)

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid email address"))
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("password must be at least 8 characters"))
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = strings.Split(req.Email, "@")[0]
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.store.CreateUser(c.Request().Context(), req.Email, req.Name, hash, s.cfg.NewUserCredits)
	if errors.Is(err, store.ErrEmailTaken) {
		return c.JSON(http.StatusConflict, utils.ErrJSON("email already registered"))
	}
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{Token: token, User: user})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	user, err := s.store.GetUserByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		return c.JSON(http.StatusUnauthorized, utils.ErrJSON("invalid email or password"))
	}

	token, err := s.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{Token: token, User: user})
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.store.GetUser(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
