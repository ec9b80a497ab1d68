package enhance

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
	"narrativeiq/pkg/diff"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/store"
)

// fakeInferencer returns canned output or a canned error.
type fakeInferencer struct {
	output string
	err    error
	calls  int
}

func (f *fakeInferencer) Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	f.calls++
	return f.output, f.err
}

func (f *fakeInferencer) GenerateStream(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string, emit func(token string) error) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	var full strings.Builder
	for _, token := range strings.SplitAfter(f.output, " ") {
		if err := emit(token); err != nil {
			return full.String(), err
		}
		full.WriteString(token)
	}
	return full.String(), nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxEnhanceChars: 50000,
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

	user, err := s.CreateUser(context.Background(), "author@example.com", "Author", "hash", credits)
	require.NoError(t, err)

	cfg := testConfig()
	l := ledger.New(s, s, cfg.Pricing, cfg.AuditTimeout)
	return NewService(fake, l, s, cfg), s, user.ID
}

func enhanceJSON(t *testing.T, enhanced string, changes ...schema.Change) string {
	t.Helper()
	b, err := json.Marshal(schema.EnhanceResult{EnhancedText: enhanced, Changes: changes})
	require.NoError(t, err)
	return string(b)
}

func TestEnhanceSuccess(t *testing.T) {
	fake := &fakeInferencer{output: enhanceJSON(t,
		"The feline sat on the rug",
		schema.Change{Original: "cat", Enhanced: "feline", Reason: "more formal"},
	)}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	result, err := svc.Enhance(ctx, userID, "The cat sat on the mat", "technical", "")
	require.NoError(t, err)

	assert.Equal(t, "The feline sat on the rug", result.EnhancedText)
	assert.Len(t, result.Changes, 1)
	assert.Equal(t, 1, result.CreditsUsed)
	assert.Equal(t, 4, result.CreditsRemaining)
	assert.NotEmpty(t, result.DocID)
	assert.Greater(t, result.Similarity, 0.0)
	assert.Less(t, result.Similarity, 100.0)

	// Original text auto-saved as a document.
	doc, err := s.GetDocument(ctx, userID, result.DocID)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat on the mat", doc.Content)

	// Exactly one audit record, for the charged operation.
	recs, err := s.ListRecords(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, schema.OpPersonaEnhance, recs[0].Operation)
	assert.Equal(t, "technical", recs[0].Persona)
	assert.Equal(t, 1, recs[0].CreditsUsed)
}

func TestEnhanceDiffSegments(t *testing.T) {
	fake := &fakeInferencer{output: enhanceJSON(t, "The feline sat on the rug")}
	svc, _, userID := newTestService(t, fake, 5)

	result, err := svc.Enhance(context.Background(), userID, "The cat sat on the mat", "poet", "")
	require.NoError(t, err)

	assert.Equal(t, []diff.Segment{
		{Kind: diff.Unchanged, Text: "The"},
		{Kind: diff.Removed, Text: "cat"},
		{Kind: diff.Added, Text: "feline"},
		{Kind: diff.Unchanged, Text: "sat on the"},
		{Kind: diff.Removed, Text: "mat"},
		{Kind: diff.Added, Text: "rug"},
	}, result.Diff)
}

func TestEnhanceValidation(t *testing.T) {
	fake := &fakeInferencer{}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	_, err := svc.Enhance(ctx, userID, "   ", "poet", "")
	assert.ErrorIs(t, err, ErrEmptyText)

	long := strings.Repeat("a", 50001)
	_, err = svc.Enhance(ctx, userID, long, "poet", "")
	var tooLong *TextTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 50000, tooLong.Limit)

	// Rejected before any reservation: balance untouched, model never called.
	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
	assert.Zero(t, fake.calls)
}

func TestEnhanceUnknownPersonaStrict(t *testing.T) {
	fake := &fakeInferencer{output: enhanceJSON(t, "x")}
	svc, _, userID := newTestService(t, fake, 5)

	_, err := svc.Enhance(context.Background(), userID, "some text", "pirate", "")
	var unknown *UnknownPersonaError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "pirate", unknown.Key)
	assert.Zero(t, fake.calls)
}

func TestEnhanceUnknownPersonaFallback(t *testing.T) {
	fake := &fakeInferencer{output: enhanceJSON(t, "simple words")}
	svc, _, userID := newTestService(t, fake, 5)
	svc.cfg.PersonaFallback = true

	result, err := svc.Enhance(context.Background(), userID, "some text", "pirate", "")
	require.NoError(t, err)
	assert.Equal(t, schema.FallbackPersona, result.Persona)
}

func TestEnhanceInsufficientCredits(t *testing.T) {
	fake := &fakeInferencer{output: enhanceJSON(t, "x")}
	svc, s, userID := newTestService(t, fake, 0)
	ctx := context.Background()

	_, err := svc.Enhance(ctx, userID, "some text", "poet", "")
	var insufficient *ledger.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Needed)
	assert.Equal(t, 0, insufficient.Current)
	assert.Zero(t, fake.calls)

	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestEnhanceDownstreamFailureRefunds(t *testing.T) {
	fake := &fakeInferencer{err: errors.New("model unavailable")}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	_, err := svc.Enhance(ctx, userID, "some text", "poet", "")
	var downstream *DownstreamError
	require.ErrorAs(t, err, &downstream)

	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	recs, err := s.ListRecords(ctx, userID, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEnhanceMalformedOutputRefunds(t *testing.T) {
	fake := &fakeInferencer{output: "I refuse to answer in JSON"}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	_, err := svc.Enhance(ctx, userID, "some text", "poet", "")
	var downstream *DownstreamError
	require.ErrorAs(t, err, &downstream)

	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestEnhanceFencedJSONAccepted(t *testing.T) {
	fake := &fakeInferencer{output: "```json\n" + enhanceJSON(t, "fenced output") + "\n```"}
	svc, _, userID := newTestService(t, fake, 5)

	result, err := svc.Enhance(context.Background(), userID, "some text", "poet", "")
	require.NoError(t, err)
	assert.Equal(t, "fenced output", result.EnhancedText)
}

func TestEnhanceStreamTokensInOrder(t *testing.T) {
	fake := &fakeInferencer{output: "The feline sat on the rug"}
	svc, _, userID := newTestService(t, fake, 5)

	var tokens []string
	result, err := svc.EnhanceStream(context.Background(), userID, "The cat sat on the mat", "poet", "", func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "The feline sat on the rug", strings.Join(tokens, ""))
	assert.Equal(t, "The feline sat on the rug", result.EnhancedText)
	assert.NotEmpty(t, result.Diff)
	assert.Equal(t, 4, result.CreditsRemaining)
}

func TestEnhanceStreamDisconnectRefunds(t *testing.T) {
	fake := &fakeInferencer{output: "one two three four"}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	emitted := 0
	_, err := svc.EnhanceStream(ctx, userID, "some text", "poet", "", func(token string) error {
		emitted++
		if emitted == 2 {
			return errors.New("client disconnected")
		}
		return nil
	})
	var downstream *DownstreamError
	require.ErrorAs(t, err, &downstream)

	// Disconnect mid-stream counts as a downstream failure: refunded.
	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestConsistencyCheck(t *testing.T) {
	report := schema.ConsistencyReport{
		Issues: []schema.ConsistencyIssue{
			{Type: "timeline_error", Description: "Dawn follows dusk within one scene", Severity: "high"},
		},
		Score:   62,
		Summary: "Mostly consistent with one timeline slip.",
	}
	b, err := json.Marshal(report)
	require.NoError(t, err)

	fake := &fakeInferencer{output: string(b)}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	result, err := svc.Consistency(ctx, userID, "some story")
	require.NoError(t, err)
	assert.Equal(t, 62, result.Report.Score)
	assert.Len(t, result.Report.Issues, 1)
	assert.Equal(t, 4, result.CreditsRemaining)

	// Analysis records carry no output text.
	recs, err := s.ListRecords(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, schema.OpConsistencyCheck, recs[0].Operation)
	assert.Empty(t, recs[0].OutputText)
}

func TestDeepScanCombinesScores(t *testing.T) {
	// Both phases parse from the same canned output; the fields each phase
	// needs are present in the union.
	combined := map[string]any{
		"issues": []any{}, "score": 90, "summary": "clean",
		"structure_score": 80, "clarity_score": 70, "flow_score": 60,
		"suggestions": []any{}, "strengths": []any{}, "overall_feedback": "solid",
	}
	b, err := json.Marshal(combined)
	require.NoError(t, err)

	fake := &fakeInferencer{output: string(b)}
	svc, _, userID := newTestService(t, fake, 5)

	result, err := svc.DeepScan(context.Background(), userID, "some story")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, (90+80+70)/3, result.Report.CombinedScore)
	assert.Equal(t, 2, result.CreditsUsed)
	assert.Equal(t, 3, result.CreditsRemaining)
}

func TestDeepScanFailureRefundsFullCost(t *testing.T) {
	fake := &fakeInferencer{err: errors.New("model down")}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	_, err := svc.DeepScan(ctx, userID, "some story")
	var downstream *DownstreamError
	require.ErrorAs(t, err, &downstream)

	balance, err := s.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestCompleteStoryAutoSaves(t *testing.T) {
	story := schema.StoryCompletion{
		CompletedStory: "Once upon a time, and then everything worked out.",
		Title:          "The Ending",
		Summary:        "A story concludes.",
		GenreDetected:  "fable",
		WordCount:      9,
	}
	b, err := json.Marshal(story)
	require.NoError(t, err)

	fake := &fakeInferencer{output: string(b)}
	svc, s, userID := newTestService(t, fake, 5)
	ctx := context.Background()

	result, err := svc.CompleteStory(ctx, userID, "Once upon a time", "fable")
	require.NoError(t, err)
	assert.Equal(t, "The Ending", result.Story.Title)
	assert.Equal(t, 2, result.CreditsUsed)
	assert.Equal(t, 3, result.CreditsRemaining)
	require.NotEmpty(t, result.DocID)

	doc, err := s.GetDocument(ctx, userID, result.DocID)
	require.NoError(t, err)
	assert.Equal(t, "The Ending", doc.Title)
	assert.Equal(t, story.CompletedStory, doc.Content)
}
