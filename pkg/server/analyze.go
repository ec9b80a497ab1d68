package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/utils"
)

type analyzeReq struct {
	Text      string `json:"text"`
	Character string `json:"character"`
}

func (s *Server) handleConsistency(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.Consistency(c.Request().Context(), userID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleStructure(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.Structure(c.Request().Context(), userID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCharacter(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.CharacterEvolution(c.Request().Context(), userID(c), req.Text, req.Character)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeepScan(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.DeepScan(c.Request().Context(), userID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
