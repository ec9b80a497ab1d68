package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/enhance"
	"narrativeiq/pkg/graph"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/store"
	"narrativeiq/pkg/utils"
)

// respondError maps pipeline errors onto the HTTP surface. Credit
// insufficiency gets its dedicated 402 shape so clients can show required
// versus available credits.
func respondError(c echo.Context, err error) error {
	var insufficient *ledger.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		return c.JSON(http.StatusPaymentRequired, map[string]any{
			"error":           "insufficient_credits",
			"credits_needed":  insufficient.Needed,
			"current_credits": insufficient.Current,
		})
	}

	var tooLong *enhance.TextTooLongError
	var outOfRange *graph.TextOutOfRangeError
	var unknownPersona *enhance.UnknownPersonaError
	switch {
	case errors.Is(err, enhance.ErrEmptyText),
		errors.As(err, &tooLong),
		errors.As(err, &outOfRange),
		errors.As(err, &unknownPersona):
		return c.JSON(http.StatusBadRequest, utils.ErrJSON(err.Error()))
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, utils.ErrJSON("not found"))
	}

	var downstreamEnhance *enhance.DownstreamError
	var downstreamGraph *graph.DownstreamError
	if errors.As(err, &downstreamEnhance) || errors.As(err, &downstreamGraph) {
		// The refund already happened; the caller was not charged.
		log.Error("downstream failure", "err", err)
		return c.JSON(http.StatusBadGateway, utils.ErrJSON(err.Error()))
	}

	log.Error("internal error", "err", err)
	return c.JSON(http.StatusInternalServerError, utils.ErrJSON("internal error"))
}
