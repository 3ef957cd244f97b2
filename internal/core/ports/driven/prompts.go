package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswer is the grounded answer prompt.
	// The template expects two %s placeholders: the question, then the retrieved clauses.
	PromptAnswer = "answer"

	// PromptAnswerSystem is the system prompt sent with PromptAnswer.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"
)
