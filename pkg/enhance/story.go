package enhance

import (
	"context"
	"errors"
	"strings"

	"narrativeiq/pkg/schema"
)

const storySystem = "You are a master storyteller. Complete the user's story fragment into a full, " +
	"satisfying narrative that honors the established characters, tone, and genre. Also provide a " +
	"compelling title, a 2-3 sentence summary, the main characters, the detected genre, an approximate " +
	"word count, and the story's structure (setup, conflict, climax, resolution)."

// StoryResult pairs the completed story with its auto-saved document and
// the credit accounting.
type StoryResult struct {
	Story            schema.StoryCompletion `json:"story"`
	DocID            string                 `json:"doc_id"`
	CreditsUsed      int                    `json:"credits_used"`
	CreditsRemaining int                    `json:"credits_remaining"`
}

// CompleteStory finishes a story fragment. The completed story is always
// saved as a new document titled by the model.
func (s *Service) CompleteStory(ctx context.Context, userID, text, genre string) (*StoryResult, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	user := text
	if g := strings.TrimSpace(genre); g != "" {
		user = "Genre: " + g + "\n\n" + text
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpStoryComplete)
	if err != nil {
		return nil, err
	}

	format := schema.ResponseFormat("story_completion", "Completed story with metadata", schema.StoryCompletionSchema)
	story, err := generateParsed[schema.StoryCompletion](ctx, s, format, storySystem, user)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "story completion failed", Err: err}
	}
	if strings.TrimSpace(story.CompletedStory) == "" {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "story completion failed", Err: errors.New("model returned empty story")}
	}

	title := strings.TrimSpace(story.Title)
	if title == "" {
		title = docTitle(story.CompletedStory)
	}
	docID := ""
	if doc, err := s.store.CreateDocument(ctx, userID, title, story.CompletedStory); err == nil {
		docID = doc.ID
	}

	balance, err := res.Complete(ctx, schema.Record{
		DocID:      docID,
		InputText:  text,
		OutputText: story.CompletedStory,
	})
	if err != nil {
		return nil, err
	}

	return &StoryResult{
		Story:            story,
		DocID:            docID,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}
