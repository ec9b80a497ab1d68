// Package graph derives the narrative memory graph (mindmap) from story
// text: a local extraction phase proposes entities, a relationship-inference
// call connects them, and assembly validates edge referential integrity.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"

	"narrativeiq/pkg/config"
	"narrativeiq/pkg/inference"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/utils"
)

// groundingChars bounds how much source text the relationship prompt sees.
const groundingChars = 4000

// TextOutOfRangeError rejects mindmap input outside the configured bounds.
type TextOutOfRangeError struct {
	Length   int
	Min, Max int
}

func (e *TextOutOfRangeError) Error() string {
	return fmt.Sprintf("text is %d characters, mindmap accepts %d-%d", e.Length, e.Min, e.Max)
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
	cfg        *config.Config
}

func NewService(inferencer inference.Inferencer, l *ledger.Ledger, cfg *config.Config) *Service {
	return &Service{inferencer: inferencer, ledger: l, cfg: cfg}
}

// GraphResult pairs the assembled graph with the credit accounting.
type GraphResult struct {
	Graph            schema.Graph `json:"graph"`
	CreditsUsed      int          `json:"credits_used"`
	CreditsRemaining int          `json:"credits_remaining"`
}

func (s *Service) validateText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 || n < s.cfg.MinMindmapChars || n > s.cfg.MaxMindmapChars {
		return &TextOutOfRangeError{Length: n, Min: s.cfg.MinMindmapChars, Max: s.cfg.MaxMindmapChars}
	}
	return nil
}

// Mindmap builds the graph as a metered operation.
func (s *Service) Mindmap(ctx context.Context, userID, text string) (*GraphResult, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpMindmap)
	if err != nil {
		return nil, err
	}

	graph, err := s.Build(ctx, text)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "mindmap generation failed", Err: err}
	}

	balance, err := res.Complete(ctx, schema.Record{InputText: text})
	if err != nil {
		return nil, err
	}
	return &GraphResult{
		Graph:            *graph,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}

const relationshipSystem = "You are a narrative relationship analyst. Given a list of entities from a " +
	"story and an excerpt of the text, infer the relationships between the entity ids. Only use the " +
	"provided ids as edge sources and targets. Also give a 2-3 sentence summary of the narrative, its " +
	"major themes, and optional attribute enrichment per entity id."

const fullGraphSystem = "You are a narrative analyst. Extract the key entities of the story (characters, " +
	"locations, organizations, themes, events, objects), infer the relationships between them, summarize " +
	"the narrative in 2-3 sentences, and name its major themes. Entity ids must be the lowercased label " +
	"with whitespace replaced by underscores, and edges must only reference those ids."

// Build assembles a graph from text without touching credits. Phase one is
// local extraction; phase two asks the model for relationships among the
// extracted ids, grounded on the opening of the text. When extraction finds
// nothing it falls back to a single combined extraction-and-relationship
// call.
func (s *Service) Build(ctx context.Context, text string) (*schema.Graph, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	entities := ExtractEntities(text)
	if len(entities) == 0 {
		return s.buildFull(ctx, text)
	}

	nodes := make([]schema.GraphNode, 0, len(entities))
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		nodes = append(nodes, schema.GraphNode{
			ID:       e.ID,
			Label:    e.Label,
			Type:     e.Type,
			Mentions: e.Mentions,
		})
		ids = append(ids, e.ID+" ("+e.Type+")")
	}

	prompt := "Entities:\n" + strings.Join(ids, "\n") + "\n\nText excerpt:\n" + utils.LimitStr(text, groundingChars)
	format := schema.ResponseFormat("relationship_result", "Relationships among the given entities", schema.RelationshipResultSchema)
	rel, err := generate[schema.RelationshipResult](ctx, s, format, relationshipSystem, prompt)
	if err != nil {
		return nil, err
	}

	graph := assemble(nodes, rel.Edges, rel.Summary, rel.Themes, rel.EntityAttributes)
	if len(graph.Themes) == 0 {
		graph.Themes = capThemes(localThemes(text))
	}
	return graph, nil
}

// buildFull is the zero-entity fallback: one combined call extracts and
// relates in a single pass.
func (s *Service) buildFull(ctx context.Context, text string) (*schema.Graph, error) {
	format := schema.ResponseFormat("full_graph_result", "Combined entity extraction and relationships", schema.FullGraphResultSchema)
	full, err := generate[schema.FullGraphResult](ctx, s, format, fullGraphSystem, utils.LimitStr(text, groundingChars))
	if err != nil {
		return nil, err
	}

	// Normalize model-supplied ids so edge validation matches node slugs.
	nodes := make([]schema.GraphNode, 0, len(full.Nodes))
	seen := map[string]int{}
	for _, n := range full.Nodes {
		id := n.ID
		if id == "" {
			id = Slugify(n.Label)
		} else {
			id = Slugify(strings.ReplaceAll(id, "_", " "))
		}
		if id == "" {
			continue
		}
		if i, dup := seen[id]; dup {
			nodes[i].Mentions += max(n.Mentions, 1)
			continue
		}
		n.ID = id
		seen[id] = len(nodes)
		nodes = append(nodes, n)
	}
	return assemble(nodes, full.Edges, full.Summary, full.Themes, nil), nil
}

// assemble validates edges against the node set and caps themes. Edges
// referencing unknown ids are dropped, not errored.
func assemble(nodes []schema.GraphNode, edges []schema.GraphEdge, summary string, themes []string, attrs map[string]map[string]string) *schema.Graph {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	kept := make([]schema.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if _, ok := index[e.Source]; !ok {
			log.Debug("dropping edge with unknown source", "source", e.Source, "target", e.Target)
			continue
		}
		if _, ok := index[e.Target]; !ok {
			log.Debug("dropping edge with unknown target", "source", e.Source, "target", e.Target)
			continue
		}
		kept = append(kept, e)
	}

	for id, kv := range attrs {
		i, ok := index[id]
		if !ok || len(kv) == 0 {
			continue
		}
		if nodes[i].Attributes == nil {
			nodes[i].Attributes = map[string]string{}
		}
		for k, v := range kv {
			nodes[i].Attributes[k] = v
		}
	}

	return &schema.Graph{
		Nodes:   nodes,
		Edges:   kept,
		Summary: strings.TrimSpace(summary),
		Themes:  capThemes(themes),
	}
}

// capThemes trims and bounds the theme list at six.
func capThemes(themes []string) []string {
	out := make([]string, 0, min(len(themes), 6))
	for _, t := range themes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == 6 {
			break
		}
	}
	return out
}

func generate[T any](ctx context.Context, s *Service, format openai.ChatCompletionNewParamsResponseFormatUnion, system, user string) (T, error) {
	var out T
	params := &openai.ChatCompletionNewParams{ResponseFormat: format}
	raw, err := s.inferencer.Generate(ctx, params, system, user)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(utils.CleanJSON(raw)), &out); err != nil {
		return out, fmt.Errorf("unparseable model output: %w", err)
	}
	return out, nil
}
