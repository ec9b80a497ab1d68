package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/utils"
)

type storyReq struct {
	Text  string `json:"text"`
	Genre string `json:"genre"`
}

func (s *Server) handleStoryComplete(c echo.Context) error {
	var req storyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.CompleteStory(c.Request().Context(), userID(c), req.Text, req.Genre)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
