package schema

import "time"

// Operation identifies a metered feature. Every debit and audit record is
// keyed by one of these.
type Operation string

const (
	OpPersonaEnhance     Operation = "persona_enhance"
	OpConsistencyCheck   Operation = "consistency_check"
	OpStructureCheck     Operation = "structure_check"
	OpCharacterEvolution Operation = "character_evolution"
	OpDeepScan           Operation = "deep_scan"
	OpMindmap            Operation = "mindmap"
	OpMindmapImage       Operation = "mindmap_image"
	OpStoryComplete      Operation = "story_complete"
)

// DefaultPricing maps each operation to its credit cost.
func DefaultPricing() map[Operation]int {
	return map[Operation]int{
		OpPersonaEnhance:     1,
		OpConsistencyCheck:   1,
		OpStructureCheck:     1,
		OpCharacterEvolution: 1,
		OpDeepScan:           2,
		OpMindmap:            2,
		OpMindmapImage:       2,
		OpStoryComplete:      2,
	}
}

// PricingLabels provides human-readable names for the pricing endpoint.
var PricingLabels = map[Operation]string{
	OpPersonaEnhance:     "Persona Style Enhancement",
	OpConsistencyCheck:   "Narrative Consistency Check",
	OpStructureCheck:     "Structure & Clarity Analysis",
	OpCharacterEvolution: "Character Evolution Tracking",
	OpDeepScan:           "Deep Consistency Scan",
	OpMindmap:            "Narrative Memory Graph (Mindmap)",
	OpMindmapImage:       "Mindmap Image Render",
	OpStoryComplete:      "Story Completion",
}

// User is a registered account. Credits is mutated only through the ledger.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Credits      int       `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document is a user-owned text blob, created explicitly via save or as a
// side effect of a completed pipeline.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is one append-only audit log entry. It is written exactly once,
// after the downstream work for a metered operation succeeded, and never
// mutated. Analysis-only operations leave OutputText empty.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DocID       string    `json:"doc_id,omitempty"`
	Operation   Operation `json:"operation"`
	Persona     string    `json:"persona,omitempty"`
	InputText   string    `json:"input_text"`
	OutputText  string    `json:"output_text,omitempty"`
	Changes     []Change  `json:"changes,omitempty"`
	CreditsUsed int       `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// Change is one explained edit from the enhancement model.
type Change struct {
	Original string `json:"original" jsonschema_description:"The original phrase that was changed"`
	Enhanced string `json:"enhanced" jsonschema_description:"The rewritten version of the phrase"`
	Reason   string `json:"reason" jsonschema_description:"Why this change improves the text"`
}

// GraphNode is one entity in the narrative memory graph. IDs are stable
// slugs derived from the normalized label.
type GraphNode struct {
	ID         string            `json:"id" jsonschema_description:"Stable slug id: lowercased label with whitespace collapsed to underscores"`
	Label      string            `json:"label" jsonschema_description:"Display name of the entity"`
	Type       string            `json:"type" jsonschema:"enum=character,enum=location,enum=organization,enum=theme,enum=event,enum=object" jsonschema_description:"Entity category"`
	Mentions   int               `json:"mentions,omitempty" jsonschema_description:"How many times the entity is mentioned"`
	Attributes map[string]string `json:"attributes,omitempty" jsonschema_description:"Open key-value attributes such as role or trait"`
}

// GraphEdge is a directed relationship between two nodes. Source and Target
// must reference node ids present in the node set.
type GraphEdge struct {
	Source      string `json:"source" jsonschema_description:"Node id the relationship starts from"`
	Target      string `json:"target" jsonschema_description:"Node id the relationship points to"`
	Label       string `json:"label" jsonschema_description:"Relationship type, e.g. Friend, Enemy, Mentor, Located_In"`
	Description string `json:"description,omitempty" jsonschema_description:"Optional short description of the relationship"`
}

// Graph is the assembled mindmap.
type Graph struct {
	Nodes   []GraphNode `json:"nodes"`
	Edges   []GraphEdge `json:"edges"`
	Summary string      `json:"summary"`
	Themes  []string    `json:"themes"`
}

// Entity is a candidate produced by the extraction phase, before graph
// assembly merges and enriches it.
type Entity struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Mentions int    `json:"mentions"`
}
