package enhance

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"

	"narrativeiq/pkg/schema"
)

// AnalysisResult pairs a typed report with the credit accounting for the
// call that produced it.
type AnalysisResult[T any] struct {
	Report           T   `json:"report"`
	CreditsUsed      int `json:"credits_used"`
	CreditsRemaining int `json:"credits_remaining"`
}

const consistencySystem = "You are a narrative consistency analyst. Examine the story for character " +
	"inconsistencies, plot gaps, timeline errors, tone shifts, factual errors, and continuity errors. " +
	"Report each issue with a clear description, the relevant excerpt, and a severity. Score the overall " +
	"consistency from 0 to 100 and summarize your assessment in 2-3 sentences."

// Consistency checks the text for narrative inconsistencies.
func (s *Service) Consistency(ctx context.Context, userID, text string) (*AnalysisResult[schema.ConsistencyReport], error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	return runAnalysis[schema.ConsistencyReport](ctx, s, userID, schema.OpConsistencyCheck,
		schema.ResponseFormat("consistency_report", "Narrative consistency analysis", schema.ConsistencyReportSchema),
		consistencySystem, text, text)
}

const structureSystem = "You are a story structure editor. Analyze the text's structure, clarity, " +
	"narrative flow, redundancy, and voice. Score structure, clarity, and flow from 0 to 100 each, list " +
	"concrete prioritized suggestions, name what the text already does well, and give 2-3 sentences of " +
	"overall feedback."

// Structure analyzes structural and clarity quality.
func (s *Service) Structure(ctx context.Context, userID, text string) (*AnalysisResult[schema.StructureReport], error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	return runAnalysis[schema.StructureReport](ctx, s, userID, schema.OpStructureCheck,
		schema.ResponseFormat("structure_report", "Structure and clarity analysis", schema.StructureReportSchema),
		structureSystem, text, text)
}

const evolutionSystem = "You are a character arc analyst. Track how the character changes across the " +
	"story. Produce 3-6 distinct stages, each with a dominant trait in 1-3 vivid words and a quote or " +
	"event from the text as evidence, then classify the overall arc shape."

// CharacterEvolution tracks a character's arc. When character is empty the
// model tracks the protagonist.
func (s *Service) CharacterEvolution(ctx context.Context, userID, text, character string) (*AnalysisResult[schema.EvolutionReport], error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	user := "Track the main character.\n\n" + text
	if c := strings.TrimSpace(character); c != "" {
		user = "Track the character named \"" + c + "\".\n\n" + text
	}
	return runAnalysis[schema.EvolutionReport](ctx, s, userID, schema.OpCharacterEvolution,
		schema.ResponseFormat("evolution_report", "Character evolution tracking", schema.EvolutionReportSchema),
		evolutionSystem, user, text)
}

// DeepScan runs the consistency and structure analyses under one
// reservation and combines their scores.
func (s *Service) DeepScan(ctx context.Context, userID, text string) (*AnalysisResult[schema.DeepScanReport], error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpDeepScan)
	if err != nil {
		return nil, err
	}

	consistency, err := generateParsed[schema.ConsistencyReport](ctx, s,
		schema.ResponseFormat("consistency_report", "Narrative consistency analysis", schema.ConsistencyReportSchema),
		consistencySystem, text)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "deep scan failed", Err: err}
	}

	structure, err := generateParsed[schema.StructureReport](ctx, s,
		schema.ResponseFormat("structure_report", "Structure and clarity analysis", schema.StructureReportSchema),
		structureSystem, text)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "deep scan failed", Err: err}
	}

	report := schema.DeepScanReport{
		Consistency:   consistency,
		Structure:     structure,
		CombinedScore: (consistency.Score + structure.StructureScore + structure.ClarityScore) / 3,
	}

	balance, err := res.Complete(ctx, schema.Record{InputText: text})
	if err != nil {
		return nil, err
	}
	return &AnalysisResult[schema.DeepScanReport]{
		Report:           report,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}

// runAnalysis is the shared single-call analysis path: reserve, generate,
// parse, audit. Callers validate input first. Analysis records carry no
// output text.
func runAnalysis[T any](ctx context.Context, s *Service, userID string, op schema.Operation, format openai.ChatCompletionNewParamsResponseFormatUnion, system, user, input string) (*AnalysisResult[T], error) {
	res, err := s.ledger.Reserve(ctx, userID, op)
	if err != nil {
		return nil, err
	}

	report, err := generateParsed[T](ctx, s, format, system, user)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "analysis failed", Err: err}
	}

	balance, err := res.Complete(ctx, schema.Record{InputText: input})
	if err != nil {
		return nil, err
	}
	return &AnalysisResult[T]{
		Report:           report,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}
