package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narrativeiq/pkg/config"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/store"
)

type fakeInferencer struct {
	output string
	err    error
	calls  int
	lastIn string
}

func (f *fakeInferencer) Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	f.calls++
	f.lastIn = user
	return f.output, f.err
}

func (f *fakeInferencer) GenerateStream(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string, emit func(token string) error) (string, error) {
	return f.Generate(ctx, params, system, user)
}

func testConfig() *config.Config {
	return &config.Config{
		MinMindmapChars: 10,
		MaxMindmapChars: 30000,
		GenerateTimeout: time.Second,
		AuditTimeout:    time.Second,
		Pricing:         schema.DefaultPricing(),
	}
}

func newTestService(t *testing.T, fake *fakeInferencer, credits int) (*Service, *store.Store, string) {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	user, err := s.CreateUser(context.Background(), "reader@example.com", "Reader", "hash", credits)
	require.NoError(t, err)

	cfg := testConfig()
	l := ledger.New(s, s, cfg.Pricing, cfg.AuditTimeout)
	return NewService(fake, l, cfg), s, user.ID
}

const sampleStory = "Aria crossed the bridge at dawn. Aria had promised Brennan she would return " +
	"before the war reached the valley. Brennan waited by the river, afraid the battle would " +
	"come first. The soldiers marched past the old mill while Aria watched from the shadows, " +
	"full of fear and hope, and Brennan sharpened his sword."

func relJSON(t *testing.T, rel schema.RelationshipResult) string {
	t.Helper()
	b, err := json.Marshal(rel)
	require.NoError(t, err)
	return string(b)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "old_mill", Slugify("Old Mill"))
	assert.Equal(t, "aria", Slugify("  Aria "))
	assert.Equal(t, "the_dark_tower", Slugify("The  Dark\tTower"))
	assert.Equal(t, "", Slugify("   "))
}

func TestExtractEntitiesDedupesAndCounts(t *testing.T) {
	entities := ExtractEntities(sampleStory)
	require.NotEmpty(t, entities)

	byID := map[string]schema.Entity{}
	for _, e := range entities {
		_, dup := byID[e.ID]
		require.False(t, dup, "duplicate entity id %s", e.ID)
		byID[e.ID] = e
	}

	aria, ok := byID["aria"]
	require.True(t, ok)
	assert.Equal(t, "character", aria.Type)
	assert.GreaterOrEqual(t, aria.Mentions, 3)

	_, ok = byID["brennan"]
	assert.True(t, ok)

	// Single-mention capitalized sentence starts are filtered out.
	_, ok = byID["the"]
	assert.False(t, ok)
}

func TestBuildDropsInvalidEdges(t *testing.T) {
	fake := &fakeInferencer{output: relJSON(t, schema.RelationshipResult{
		Edges: []schema.GraphEdge{
			{Source: "aria", Target: "brennan", Label: "Promised"},
			{Source: "aria", Target: "nobody_home", Label: "Knows"},
			{Source: "ghost", Target: "brennan", Label: "Haunts"},
		},
		Summary: "Two people and a war.",
		Themes:  []string{"war", "hope"},
	})}
	svc, _, _ := newTestService(t, fake, 5)

	graph, err := svc.Build(context.Background(), sampleStory)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, n := range graph.Nodes {
		ids[n.ID] = true
	}
	require.Len(t, graph.Edges, 1)
	for _, e := range graph.Edges {
		assert.True(t, ids[e.Source])
		assert.True(t, ids[e.Target])
	}
}

func TestBuildAppliesAttributesAndThemeCap(t *testing.T) {
	fake := &fakeInferencer{output: relJSON(t, schema.RelationshipResult{
		EntityAttributes: map[string]map[string]string{
			"aria":    {"role": "protagonist"},
			"unknown": {"role": "ignored"},
		},
		Summary: "A promise across a war.",
		Themes:  []string{"war", "hope", "love", "fear", "duty", "loss", "eighth", "ninth"},
	})}
	svc, _, _ := newTestService(t, fake, 5)

	graph, err := svc.Build(context.Background(), sampleStory)
	require.NoError(t, err)

	assert.Len(t, graph.Themes, 6)

	var aria *schema.GraphNode
	for i := range graph.Nodes {
		if graph.Nodes[i].ID == "aria" {
			aria = &graph.Nodes[i]
		}
	}
	require.NotNil(t, aria)
	assert.Equal(t, "protagonist", aria.Attributes["role"])
}

func TestBuildLocalThemeFallback(t *testing.T) {
	fake := &fakeInferencer{output: relJSON(t, schema.RelationshipResult{
		Summary: "A promise across a war.",
	})}
	svc, _, _ := newTestService(t, fake, 5)

	graph, err := svc.Build(context.Background(), sampleStory)
	require.NoError(t, err)

	// Model gave no themes; keyword heuristic fills in (war, fear appear
	// repeatedly in the sample).
	assert.NotEmpty(t, graph.Themes)
	assert.LessOrEqual(t, len(graph.Themes), 6)
}

func TestBuildGroundingExcerptBounded(t *testing.T) {
	fake := &fakeInferencer{output: relJSON(t, schema.RelationshipResult{Summary: "s"})}
	svc, _, _ := newTestService(t, fake, 5)

	long := sampleStory + strings.Repeat(" More and more Aria and Brennan.", 400)
	_, err := svc.Build(context.Background(), long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(fake.lastIn), groundingChars+1000)
}

func TestBuildFallbackWhenNoEntities(t *testing.T) {
	full := schema.FullGraphResult{
		Nodes: []schema.GraphNode{
			{ID: "narrator", Label: "Narrator", Type: "character"},
			{ID: "city", Label: "City", Type: "location"},
		},
		Edges: []schema.GraphEdge{
			{Source: "narrator", Target: "city", Label: "Located_In"},
			{Source: "narrator", Target: "missing", Label: "Dropped"},
		},
		Summary: "A narrator in a city.",
		Themes:  []string{"solitude"},
	}
	b, err := json.Marshal(full)
	require.NoError(t, err)

	fake := &fakeInferencer{output: string(b)}
	svc, _, _ := newTestService(t, fake, 5)

	// All lowercase, no repeated keywords: local extraction finds nothing.
	graph, err := svc.Build(context.Background(), "it rained quietly over everything that night and nobody spoke of it again")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "Located_In", graph.Edges[0].Label)
	assert.Equal(t, []string{"solitude"}, graph.Themes)
}

func TestMindmapMetering(t *testing.T) {
	fake := &fakeInferencer{output: relJSON(t, schema.RelationshipResult{Summary: "s", Themes: []string{"war"}})}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	result, err := svc.Mindmap(ctx, userID, sampleStory)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreditsUsed)
	assert.Equal(t, 3, result.CreditsRemaining)

	recs, err := s.ListRecords(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, schema.OpMindmap, recs[0].Operation)
}

func TestMindmapFailureRefunds(t *testing.T) {
	fake := &fakeInferencer{err: errors.New("model down")}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	_, err := svc.Mindmap(ctx, userID, sampleStory)
	var downstream *DownstreamError
	require.ErrorAs(t, err, &downstream)

	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestMindmapValidation(t *testing.T) {
	fake := &fakeInferencer{}
	svc, _, userID := newTestService(t, fake, 5)

	_, err := svc.Mindmap(context.Background(), userID, "short")
	var outOfRange *TextOutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
	assert.Zero(t, fake.calls)
}

func TestRenderProducesWebP(t *testing.T) {
	g := &schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "aria", Label: "Aria", Type: "character"},
			{ID: "brennan", Label: "Brennan", Type: "character"},
			{ID: "war", Label: "war", Type: "theme"},
		},
		Edges: []schema.GraphEdge{
			{Source: "aria", Target: "brennan", Label: "Promised"},
		},
		Summary: "Two people and a war.",
	}

	img, err := Render(g)
	require.NoError(t, err)
	assert.NotEmpty(t, img)
	// WebP container magic: RIFF....WEBP.
	require.Greater(t, len(img), 12)
	assert.Equal(t, "RIFF", string(img[:4]))
	assert.Equal(t, "WEBP", string(img[8:12]))
}

func TestRenderEmptyGraph(t *testing.T) {
	_, err := Render(&schema.Graph{})
	assert.Error(t, err)
}
