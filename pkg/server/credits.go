package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/utils"
)

func (s *Server) handleBalance(c echo.Context) error {
	balance, err := s.ledger.Balance(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"credits": balance})
}

func (s *Server) handlePricing(c echo.Context) error {
	type price struct {
		Operation schema.Operation `json:"operation"`
		Label     string           `json:"label"`
		Credits   int              `json:"credits"`
	}
	out := make([]price, 0, len(s.cfg.Pricing))
	for _, op := range []schema.Operation{
		schema.OpPersonaEnhance, schema.OpConsistencyCheck, schema.OpStructureCheck,
		schema.OpCharacterEvolution, schema.OpDeepScan, schema.OpMindmap,
		schema.OpMindmapImage, schema.OpStoryComplete,
	} {
		out = append(out, price{Operation: op, Label: schema.PricingLabels[op], Credits: s.cfg.Pricing[op]})
	}
	return c.JSON(http.StatusOK, map[string]any{"pricing": out})
}

type addCreditsReq struct {
	Amount int `json:"amount"`
}

// handleAddCredits is the top-up endpoint. Payment-provider verification is
// out of scope here; the amount is bounded so the endpoint cannot mint
// arbitrary balances.
func (s *Server) handleAddCredits(c echo.Context) error {
	var req addCreditsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}
	if req.Amount <= 0 || req.Amount > 100 {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("amount must be between 1 and 100"))
	}

	balance, err := s.store.Credit(c.Request().Context(), userID(c), req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"credits": balance})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "narrativeiq",
		"status":  "ok",
	})
}
