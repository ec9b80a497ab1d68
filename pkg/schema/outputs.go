package schema

import (
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
)

func generateSchema[T any]() any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

var (
	EnhanceResultSchema      = generateSchema[EnhanceResult]()
	ConsistencyReportSchema  = generateSchema[ConsistencyReport]()
	StructureReportSchema    = generateSchema[StructureReport]()
	EvolutionReportSchema    = generateSchema[EvolutionReport]()
	StoryCompletionSchema    = generateSchema[StoryCompletion]()
	RelationshipResultSchema = generateSchema[RelationshipResult]()
	FullGraphResultSchema    = generateSchema[FullGraphResult]()
)

// ResponseFormat builds a strict JSON-schema response format for chat
// completions so the model output parses directly into the typed result.
func ResponseFormat(name, description string, schema any) openai.ChatCompletionNewParamsResponseFormatUnion {
	p := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: p},
	}
}
