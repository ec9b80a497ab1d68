package schema

// Typed results parsed from JSON-mode model output. A response that does not
// unmarshal into the expected shape is a downstream failure; loosely typed
// maps never flow through the pipelines.

// EnhanceResult is the structured output of a persona rewrite.
type EnhanceResult struct {
	EnhancedText string   `json:"enhanced_text" jsonschema_description:"The full rewritten text in the requested persona"`
	Changes      []Change `json:"changes" jsonschema_description:"3-8 of the most significant changes, each with a reason"`
}

// ConsistencyIssue is one detected narrative problem.
type ConsistencyIssue struct {
	Type        string `json:"type" jsonschema:"enum=character_inconsistency,enum=plot_gap,enum=timeline_error,enum=tone_shift,enum=factual_error,enum=continuity_error" jsonschema_description:"Issue category"`
	Description string `json:"description" jsonschema_description:"Clear description of the issue"`
	Excerpt     string `json:"excerpt,omitempty" jsonschema_description:"Relevant text excerpt"`
	Severity    string `json:"severity" jsonschema:"enum=low,enum=medium,enum=high" jsonschema_description:"Severity of the issue"`
}

// ConsistencyReport is the structured output of a consistency check.
type ConsistencyReport struct {
	Issues  []ConsistencyIssue `json:"issues" jsonschema_description:"Detected inconsistencies"`
	Score   int                `json:"score" jsonschema_description:"0-100 where 100 is perfectly consistent"`
	Summary string             `json:"summary" jsonschema_description:"2-3 sentence overall assessment"`
}

// StructureSuggestion is one editorial recommendation.
type StructureSuggestion struct {
	Category   string `json:"category" jsonschema:"enum=structure,enum=clarity,enum=flow,enum=redundancy,enum=voice" jsonschema_description:"Suggestion category"`
	Issue      string `json:"issue" jsonschema_description:"The problem found"`
	Suggestion string `json:"suggestion" jsonschema_description:"How to fix it"`
	Priority   string `json:"priority" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"Priority of the fix"`
}

// StructureReport is the structured output of a structure analysis.
type StructureReport struct {
	StructureScore  int                   `json:"structure_score" jsonschema_description:"0-100 structural quality"`
	ClarityScore    int                   `json:"clarity_score" jsonschema_description:"0-100 clarity"`
	FlowScore       int                   `json:"flow_score" jsonschema_description:"0-100 narrative flow"`
	Suggestions     []StructureSuggestion `json:"suggestions" jsonschema_description:"Concrete improvement suggestions"`
	Strengths       []string              `json:"strengths" jsonschema_description:"What the text already does well"`
	OverallFeedback string                `json:"overall_feedback" jsonschema_description:"2-3 sentence summary"`
}

// EvolutionStage is one step in a character arc.
type EvolutionStage struct {
	Stage    int    `json:"stage" jsonschema_description:"Stage number starting at 1"`
	Trait    string `json:"trait" jsonschema_description:"Dominant trait at this stage, 1-3 vivid words"`
	Evidence string `json:"evidence" jsonschema_description:"Quote or event from the text showing this trait"`
}

// EvolutionReport is the structured output of character evolution tracking.
type EvolutionReport struct {
	Character     string           `json:"character" jsonschema_description:"The tracked character's name"`
	Arc           []EvolutionStage `json:"arc" jsonschema_description:"3-6 distinct stages of the character's journey"`
	EvolutionType string           `json:"evolution_type" jsonschema:"enum=positive_growth,enum=negative_descent,enum=flat,enum=cyclical,enum=complex" jsonschema_description:"Overall arc shape"`
}

// DeepScanReport combines a consistency and a structure pass.
type DeepScanReport struct {
	Consistency   ConsistencyReport `json:"consistency"`
	Structure     StructureReport   `json:"structure"`
	CombinedScore int               `json:"combined_score"`
}

// StoryStructure breaks a completed story into its beats.
type StoryStructure struct {
	Setup      string `json:"setup" jsonschema_description:"How the story is set up"`
	Conflict   string `json:"conflict" jsonschema_description:"The central conflict"`
	Climax     string `json:"climax" jsonschema_description:"The climax"`
	Resolution string `json:"resolution" jsonschema_description:"How the story resolves"`
}

// StoryCompletion is the structured output of story completion.
type StoryCompletion struct {
	CompletedStory string         `json:"completed_story" jsonschema_description:"The full completed story text"`
	Title          string         `json:"title" jsonschema_description:"A compelling title"`
	Summary        string         `json:"summary" jsonschema_description:"2-3 sentence summary"`
	Characters     []string       `json:"characters" jsonschema_description:"Main characters"`
	GenreDetected  string         `json:"genre_detected" jsonschema_description:"Detected genre"`
	WordCount      int            `json:"word_count" jsonschema_description:"Approximate word count of the completed story"`
	StoryStructure StoryStructure `json:"story_structure"`
}

// RelationshipResult is the structured output of the relationship-inference
// phase of graph assembly.
type RelationshipResult struct {
	Edges            []GraphEdge                  `json:"edges" jsonschema_description:"Relationships between the given entity ids"`
	EntityAttributes map[string]map[string]string `json:"entity_attributes,omitempty" jsonschema_description:"Optional per-entity attribute enrichment keyed by entity id"`
	Summary          string                       `json:"summary" jsonschema_description:"2-3 sentence summary of the narrative"`
	Themes           []string                     `json:"themes" jsonschema_description:"Major themes of the narrative"`
}

// FullGraphResult is the combined extraction-and-relationship fallback used
// when local extraction finds nothing.
type FullGraphResult struct {
	Nodes   []GraphNode `json:"nodes" jsonschema_description:"Extracted entities"`
	Edges   []GraphEdge `json:"edges" jsonschema_description:"Relationships between the extracted entities"`
	Summary string      `json:"summary" jsonschema_description:"2-3 sentence summary of the narrative"`
	Themes  []string    `json:"themes" jsonschema_description:"Major themes of the narrative"`
}
