package inference

import (
	"context"

	"github.com/openai/openai-go/v3"
)

// Inferencer is the text-generation collaborator. Params may carry a model
// override, temperature, completion budget, and a structured-output response
// format; implementations fill in their own defaults for unset fields.
type Inferencer interface {
	// Generate runs a single completion and returns the full output text.
	Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)

	// GenerateStream runs a completion in token-streaming mode, calling emit
	// for each token in generation order. It returns the accumulated text;
	// emit returning an error aborts the stream.
	GenerateStream(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string, emit func(token string) error) (string, error)
}
