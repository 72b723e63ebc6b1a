package persona

import (
	"encoding/json"

	"github.com/visionary-dev/visionary/internal/provider"
)

// Operation names the provider may invoke.
const (
	OpUpdateDocument   = "updateDocument"
	OpSuggestNextSteps = "suggestNextSteps"
)

var updateDocumentOp = provider.Operation{
	Name:        OpUpdateDocument,
	Description: "Update the application design document markdown content. Call this whenever the user provides new requirements or ideas, OR when you have gathered new market/technical research that should be incorporated.",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"content": {
				"type": "string",
				"description": "The full, updated markdown content of the design document. You must overwrite the entire document, so preserve existing parts that are still valid."
			}
		},
		"required": ["content"]
	}`),
}

var suggestNextStepsOp = provider.Operation{
	Name:        OpSuggestNextSteps,
	Description: "Provide a list of suggested answers for the question you just asked the user. The first option should be your recommended choice.",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"options": {
				"type": "array",
				"items": {"type": "string"},
				"description": "A list of 3-4 short, punchy answer options for the user."
			}
		},
		"required": ["options"]
	}`),
}

var declarations = map[string]provider.Operation{
	OpUpdateDocument:   updateDocumentOp,
	OpSuggestNextSteps: suggestNextStepsOp,
}

// Declarations returns the operation schemas for this persona's permitted
// set, in declaration order, ready to attach to a provider request.
func (c Config) Declarations() []provider.Operation {
	out := make([]provider.Operation, 0, len(c.operations))
	for _, name := range c.operations {
		if op, ok := declarations[name]; ok {
			out = append(out, op)
		}
	}
	return out
}

// LiveDeclarations returns the operation schemas declared up front for a
// realtime session: both operations, for the whole session.
func LiveDeclarations() []provider.Operation {
	return []provider.Operation{updateDocumentOp, suggestNextStepsOp}
}
