package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
)

// Prompt IDs used by the synthesis loop.
const (
	PlanningID   = "planning"
	GenerationID = "generation"
	ReflectionID = "reflection"
)

// Prompt represents a versioned prompt template with metadata.
type Prompt struct {
	ID          string        // Unique identifier (e.g., "planning", "generation")
	Version     PromptVersion // Version of this prompt
	System      string        // Optional system instruction sent alongside the prompt
	Content     string        // Template text with {{variable}} placeholders
	Description string        // Human-readable description
	Tags        []string      // Tags for categorization
	Deprecated  bool          // True if this version is deprecated
}
