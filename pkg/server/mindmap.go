package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/utils"
)

type mindmapReq struct {
	Text string `json:"text"`
}

func (s *Server) handleMindmap(c echo.Context) error {
	var req mindmapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.graph.Mindmap(c.Request().Context(), userID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleMindmapImage(c echo.Context) error {
	var req mindmapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.graph.MindmapImage(c.Request().Context(), userID(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set("X-Credits-Remaining", strconv.Itoa(result.CreditsRemaining))
	return c.Blob(http.StatusOK, "image/webp", result.WebP)
}
