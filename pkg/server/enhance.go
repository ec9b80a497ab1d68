package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/diff"
	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/utils"
)

type enhanceReq struct {
	Text    string `json:"text"`
	Persona string `json:"persona"`
	DocID   string `json:"doc_id"`
}

func (s *Server) handlePersonas(c echo.Context) error {
	personas := make([]schema.Persona, 0, len(schema.Personas))
	for _, key := range schema.PersonaKeys() {
		personas = append(personas, schema.Personas[key])
	}
	return c.JSON(http.StatusOK, map[string]any{"personas": personas})
}

func (s *Server) handleEnhance(c echo.Context) error {
	var req enhanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	result, err := s.enhance.Enhance(c.Request().Context(), userID(c), req.Text, req.Persona, req.DocID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type streamToken struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

type streamFinal struct {
	Done             bool           `json:"done"`
	Diff             []diff.Segment `json:"diff"`
	Similarity       float64        `json:"similarity"`
	DocID            string         `json:"doc_id"`
	CreditsRemaining int            `json:"credits_remaining"`
}

type streamError struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// handleEnhanceStream delivers the rewrite token-by-token over SSE. The
// final event always closes the stream: the diff and balance on success, an
// error payload on failure. Validation and reservation failures surface as
// plain JSON before any SSE framing starts.
func (s *Server) handleEnhanceStream(c echo.Context) error {
	var req enhanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}

	w, err := utils.NewSSEWriter(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, utils.ErrJSON(err.Error()))
	}
	defer w.Close()

	ctx := c.Request().Context()
	result, err := s.enhance.EnhanceStream(ctx, userID(c), req.Text, req.Persona, req.DocID, func(token string) error {
		// A dead client context aborts the generator loop, which the
		// pipeline treats as a downstream failure and refunds.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return w.Data(streamToken{Token: token})
	})
	if err != nil {
		return w.Data(streamError{Error: err.Error(), Done: true})
	}

	return w.Data(streamFinal{
		Done:             true,
		Diff:             result.Diff,
		Similarity:       result.Similarity,
		DocID:            result.DocID,
		CreditsRemaining: result.CreditsRemaining,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	limit := queryInt(c, "limit", 20)
	recs, err := s.store.ListRecords(c.Request().Context(), userID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	if recs == nil {
		recs = []schema.Record{}
	}
	return c.JSON(http.StatusOK, map[string]any{"records": recs})
}

type saveDocumentReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleSaveDocument(c echo.Context) error {
	var req saveDocumentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("content must not be empty"))
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "Untitled"
	}

	doc, err := s.store.CreateDocument(c.Request().Context(), userID(c), req.Title, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	docs, err := s.store.ListDocuments(c.Request().Context(), userID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	if docs == nil {
		docs = []schema.Document{}
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(c echo.Context) error {
	doc, err := s.store.GetDocument(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
