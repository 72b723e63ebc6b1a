// Package turn implements the text-mode turn protocol: it builds one
// provider request from conversation history, the current document, the
// user input and the active persona, and parses the structured response.
// The engine is a pure request/response mapper; the caller appends
// transcript messages and applies document replacements.
package turn

import (
	"context"
	"errors"

	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
)

// ErrEmptyInput is returned when a turn carries neither text nor attachment.
var ErrEmptyInput = errors.New("turn requires user input or an attachment")

// Engine runs text-mode turns against a completion provider.
type Engine struct {
	provider    provider.CompletionProvider
	model       string
	temperature float64
}

// NewEngine creates a turn engine. model may be empty to use the
// provider's default.
func NewEngine(p provider.CompletionProvider, model string, temperature float64) *Engine {
	return &Engine{provider: p, model: model, temperature: temperature}
}

// Result is the parsed outcome of one turn.
type Result struct {
	// DisplayText is the reply with any reasoning trace removed.
	DisplayText string
	// Thinking is the extracted reasoning trace, empty if absent.
	Thinking string
	// DocumentUpdate is the full replacement content, nil when the
	// provider issued no (valid) updateDocument invocation.
	DocumentUpdate *string
	// Suggestions are the reply options from suggestNextSteps, nil if absent.
	Suggestions []string
}

// Submit runs one turn. history must already have reasoning traces
// stripped (mapping transcript messages to provider.Turn does this).
func (e *Engine) Submit(
	ctx context.Context,
	history []provider.Turn,
	doc string,
	userInput string,
	p persona.Config,
	attachment *provider.Attachment,
) (*Result, error) {
	if userInput == "" && attachment == nil {
		return nil, ErrEmptyInput
	}

	req := provider.Request{
		Model:             e.model,
		SystemInstruction: p.Instruction(doc),
		History:           history,
		UserInput:         userInput,
		Attachment:        attachment,
		Operations:        p.Declarations(),
		WebSearch:         p.WebSearch,
		Temperature:       e.temperature,
	}

	resp, err := e.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	return Parse(resp, p), nil
}

// Parse maps a provider response to a Result under the active persona's
// permitted operation set.
func Parse(resp *provider.Response, p persona.Config) *Result {
	thinking, display := ExtractThinking(resp.Text)
	res := &Result{DisplayText: display, Thinking: thinking}

	// Only the first invocation of each operation is honored; later
	// duplicates and unpermitted or unknown names are ignored. Malformed
	// arguments count as "operation absent", never as an error.
	sawUpdate, sawSuggest := false, false
	for _, inv := range resp.Invocations {
		switch inv.Name {
		case persona.OpUpdateDocument:
			if sawUpdate || !p.Permits(persona.OpUpdateDocument) {
				continue
			}
			sawUpdate = true
			if content, ok := inv.Args["content"].(string); ok && content != "" {
				res.DocumentUpdate = &content
			}
		case persona.OpSuggestNextSteps:
			if sawSuggest || !p.Permits(persona.OpSuggestNextSteps) {
				continue
			}
			sawSuggest = true
			if options := StringOptions(inv.Args["options"]); len(options) > 0 {
				res.Suggestions = options
			}
		}
	}

	return res
}

// StringOptions coerces a decoded JSON array into its string elements.
// Non-array values and non-string elements are dropped.
func StringOptions(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
