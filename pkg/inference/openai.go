package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// OpenAIInferencer implements Inferencer using OpenAI's official Go SDK.
// It also serves any OpenAI-compatible endpoint via ChangeBaseURL.
type OpenAIInferencer struct {
	client *openai.Client
	apiKey string
	model  string
}

// NewOpenAIInferencer creates a new inferencer instance using OpenAI client.
func NewOpenAIInferencer(apiKey string, model string) *OpenAIInferencer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIInferencer{
		client: &client,
		apiKey: apiKey,
		model:  model,
	}
}

// NewGroqInferencer points the OpenAI client at Groq's OpenAI-compatible API.
func NewGroqInferencer(apiKey string, model string) *OpenAIInferencer {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	client := openai.NewClient(
		option.WithBaseURL("https://api.groq.com/openai/v1"),
		option.WithAPIKey(apiKey),
	)
	return &OpenAIInferencer{
		client: &client,
		apiKey: apiKey,
		model:  model,
	}
}

func (o *OpenAIInferencer) ChangeBaseURL(baseURL string) {
	client := openai.NewClient(
		option.WithAPIKey(o.apiKey),
		option.WithBaseURL(baseURL),
	)
	o.client = &client
}

func (o *OpenAIInferencer) SetModel(model string) {
	o.model = model
}

func (o *OpenAIInferencer) prepare(params *openai.ChatCompletionNewParams, system, user string) *openai.ChatCompletionNewParams {
	if params == nil {
		params = new(openai.ChatCompletionNewParams)
	} else {
		params = &(*params)
	}
	params.Model = cmp.Or(params.Model, o.model)
	params.Messages = []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Role: "system",
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: param.Opt[string]{Value: system},
				},
			}},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Role: "user",
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: param.Opt[string]{Value: user},
				},
			},
		},
	}

	params.MaxCompletionTokens = openai.Int(cmp.Or(params.MaxCompletionTokens.Value, 4096*4))
	params.Temperature = openai.Float(cmp.Or(params.Temperature.Value, 0.3))
	params.TopP = openai.Float(cmp.Or(params.TopP.Value, 1.0))
	return params
}

// Generate sends text to the chat completion endpoint and returns the output.
func (o *OpenAIInferencer) Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	params = o.prepare(params, system, user)

	resp, err := o.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return "", fmt.Errorf("openai inference error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion content")
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams completion tokens through emit and returns the
// accumulated text.
func (o *OpenAIInferencer) GenerateStream(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string, emit func(token string) error) (string, error) {
	params = o.prepare(params, system, user)

	var full []byte
	stream := o.client.Chat.Completions.NewStreaming(ctx, *params)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full = append(full, token...)
		if err := emit(token); err != nil {
			return string(full), err
		}
	}
	if err := stream.Err(); err != nil {
		return string(full), fmt.Errorf("openai stream error: %w", err)
	}
	if len(full) == 0 {
		return "", errors.New("empty completion content")
	}
	return string(full), nil
}
