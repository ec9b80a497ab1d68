package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// GeminiInferencer implements Inferencer using Google's genai SDK.
type GeminiInferencer struct {
	client *genai.Client
	apiKey string
	model  string
}

func NewGeminiInferencer(apiKey string, model string) (*GeminiInferencer, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &GeminiInferencer{
		client: client,
		apiKey: apiKey,
		model:  model,
	}, nil
}

func (o *GeminiInferencer) config(params *openai.ChatCompletionNewParams, system string) (*genai.GenerateContentConfig, string) {
	if params == nil {
		params = new(openai.ChatCompletionNewParams)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleModel),
		MaxOutputTokens:   int32(cmp.Or(params.MaxCompletionTokens.Value, 4096)),
	}
	// JSON-schema and json_object response formats both map to a JSON MIME
	// constraint; Gemini enforces validity, not the exact schema.
	if params.ResponseFormat.OfJSONSchema != nil || params.ResponseFormat.OfJSONObject != nil {
		config.ResponseMIMEType = "application/json"
	}
	if params.Temperature.Valid() {
		t := float32(params.Temperature.Value)
		config.Temperature = &t
	}
	return config, cmp.Or(params.Model, o.model)
}

func (o *GeminiInferencer) Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	config, model := o.config(params, system)

	result, err := o.client.Models.GenerateContent(ctx, model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("empty completion content")
	}
	return text, nil
}

func (o *GeminiInferencer) GenerateStream(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string, emit func(token string) error) (string, error) {
	config, model := o.config(params, system)

	var full []byte
	for resp, err := range o.client.Models.GenerateContentStream(ctx, model, genai.Text(user), config) {
		if err != nil {
			return string(full), fmt.Errorf("gemini stream error: %w", err)
		}
		token := resp.Text()
		if token == "" {
			continue
		}
		full = append(full, token...)
		if err := emit(token); err != nil {
			return string(full), err
		}
	}
	if len(full) == 0 {
		return "", errors.New("empty completion content")
	}
	return string(full), nil
}
