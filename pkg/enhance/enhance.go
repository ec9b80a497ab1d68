// Package enhance runs the metered text pipelines: persona rewrites,
// narrative analysis, and story completion. Every operation follows the
// ledger protocol: reserve before the model call, refund on failure,
// audit record on success.
package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"

	"narrativeiq/pkg/config"
	"narrativeiq/pkg/diff"
	"narrativeiq/pkg/inference"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/store"
	"narrativeiq/pkg/utils"
)

var ErrEmptyText = errors.New("text must not be empty")

// TextTooLongError rejects oversized input before any credits move.
type TextTooLongError struct {
	Length int
	Limit  int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("text is %d characters, limit is %d", e.Length, e.Limit)
}

// UnknownPersonaError is returned for an unrecognized persona key when
// fallback is disabled.
type UnknownPersonaError struct {
	Key string
}

func (e *UnknownPersonaError) Error() string {
	return fmt.Sprintf("unknown persona %q, valid keys: %s", e.Key, strings.Join(schema.PersonaKeys(), ", "))
}

// DownstreamError wraps a collaborator failure that already triggered a
// refund.
type DownstreamError struct {
	Reason string
	Err    error
}

func (e *DownstreamError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *DownstreamError) Unwrap() error { return e.Err }

type Service struct {
	inferencer inference.Inferencer
	ledger     *ledger.Ledger
	store      *store.Store
	cfg        *config.Config
}

func NewService(inferencer inference.Inferencer, l *ledger.Ledger, s *store.Store, cfg *config.Config) *Service {
	return &Service{inferencer: inferencer, ledger: l, store: s, cfg: cfg}
}

// Result is the bundle returned by a persona rewrite.
type Result struct {
	EnhancedText     string         `json:"enhanced_text"`
	Changes          []schema.Change `json:"changes"`
	Diff             []diff.Segment `json:"diff"`
	Similarity       float64        `json:"similarity"`
	Persona          string         `json:"persona"`
	DocID            string         `json:"doc_id"`
	CreditsUsed      int            `json:"credits_used"`
	CreditsRemaining int            `json:"credits_remaining"`
}

func (s *Service) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxEnhanceChars {
		return &TextTooLongError{Length: n, Limit: s.cfg.MaxEnhanceChars}
	}
	return nil
}

// resolvePersona maps a requested key to a persona. With fallback enabled an
// unknown key degrades to the simplified persona; otherwise it is rejected.
func (s *Service) resolvePersona(key string) (schema.Persona, error) {
	if p, ok := schema.Personas[key]; ok {
		return p, nil
	}
	if s.cfg.PersonaFallback {
		return schema.Personas[schema.FallbackPersona], nil
	}
	return schema.Persona{}, &UnknownPersonaError{Key: key}
}

// generateParsed runs a JSON-mode completion and parses it strictly into T.
// A response that does not unmarshal is a collaborator failure, never a
// partially applied result.
func generateParsed[T any](ctx context.Context, s *Service, format openai.ChatCompletionNewParamsResponseFormatUnion, system, user string) (T, error) {
	var out T

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	params := &openai.ChatCompletionNewParams{ResponseFormat: format}
	// Allow the completion roughly twice the input's tokens, within bounds.
	if tokens, err := utils.NumTokens(user); err == nil {
		params.MaxCompletionTokens = openai.Int(min(max(int64(tokens)*2, 2048), 4096*4))
	}
	raw, err := s.inferencer.Generate(ctx, params, system, user)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(utils.CleanJSON(raw)), &out); err != nil {
		return out, fmt.Errorf("unparseable model output: %w", err)
	}
	return out, nil
}

const enhanceInstruction = "Rewrite the user's text in your assigned style. Respond with the full " +
	"rewritten text and a list of the 3-8 most significant changes you made, each with the original " +
	"phrase, the enhanced phrase, and the reason for the change. Preserve the meaning of the text."

// Enhance performs a persona rewrite of text. When docID is empty the
// original text is saved as a new document so the rewrite has a stable
// anchor in history.
func (s *Service) Enhance(ctx context.Context, userID, text, personaKey, docID string) (*Result, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	persona, err := s.resolvePersona(personaKey)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpPersonaEnhance)
	if err != nil {
		return nil, err
	}

	format := schema.ResponseFormat("enhance_result", "Persona rewrite with explained changes", schema.EnhanceResultSchema)
	parsed, err := generateParsed[schema.EnhanceResult](ctx, s, format, persona.System+"\n\n"+enhanceInstruction, text)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "enhancement failed", Err: err}
	}
	if strings.TrimSpace(parsed.EnhancedText) == "" {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "enhancement failed", Err: errors.New("model returned empty enhanced text")}
	}

	if docID == "" {
		doc, err := s.store.CreateDocument(ctx, userID, docTitle(text), text)
		if err == nil {
			docID = doc.ID
		}
	}

	balance, err := res.Complete(ctx, schema.Record{
		DocID:      docID,
		Persona:    persona.Key,
		InputText:  text,
		OutputText: parsed.EnhancedText,
		Changes:    parsed.Changes,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		EnhancedText:     parsed.EnhancedText,
		Changes:          parsed.Changes,
		Diff:             diff.Compute(text, parsed.EnhancedText),
		Similarity:       diff.Similarity(text, parsed.EnhancedText),
		Persona:          persona.Key,
		DocID:            docID,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}

const streamInstruction = "Rewrite the user's text in your assigned style. Respond with ONLY the " +
	"rewritten text, no preamble, no commentary, no markdown fences."

// EnhanceStream is the streaming variant: tokens reach emit in generation
// order, and diff, similarity, and the audit record are deferred until the
// stream completes. A client disconnect observed by emit counts as a
// downstream failure and refunds the reservation.
func (s *Service) EnhanceStream(ctx context.Context, userID, text, personaKey, docID string, emit func(token string) error) (*Result, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	persona, err := s.resolvePersona(personaKey)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpPersonaEnhance)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	enhanced, err := s.inferencer.GenerateStream(genCtx, nil, persona.System+"\n\n"+streamInstruction, text, emit)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "enhancement stream failed", Err: err}
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "enhancement stream failed", Err: errors.New("model returned empty enhanced text")}
	}

	if docID == "" {
		doc, err := s.store.CreateDocument(ctx, userID, docTitle(text), text)
		if err == nil {
			docID = doc.ID
		}
	}

	balance, err := res.Complete(ctx, schema.Record{
		DocID:      docID,
		Persona:    persona.Key,
		InputText:  text,
		OutputText: enhanced,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		EnhancedText:     enhanced,
		Diff:             diff.Compute(text, enhanced),
		Similarity:       diff.Similarity(text, enhanced),
		Persona:          persona.Key,
		DocID:            docID,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}

// docTitle derives a short title from the opening of the text.
func docTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	return utils.LimitStr(title, 50)
}
