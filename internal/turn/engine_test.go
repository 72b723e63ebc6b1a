package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
)

func TestExtractThinking(t *testing.T) {
	thinking, display := ExtractThinking("<thinking>step 1\nstep 2</thinking>\nThe answer is 42.")
	assert.Equal(t, "step 1\nstep 2", thinking)
	assert.Equal(t, "The answer is 42.", display)
}

func TestExtractThinking_NoTrace(t *testing.T) {
	thinking, display := ExtractThinking("Just a plain reply.")
	assert.Empty(t, thinking)
	assert.Equal(t, "Just a plain reply.", display)
}

func TestExtractThinking_Idempotent(t *testing.T) {
	inputs := []string{
		"<thinking>inner</thinking>outer",
		"prefix <thinking>a</thinking> middle <thinking>b</thinking> suffix",
		"no trace at all",
		"<thinking>only a trace</thinking>",
	}
	for _, in := range inputs {
		_, display := ExtractThinking(in)
		again, unchanged := ExtractThinking(display)
		assert.Empty(t, again, "input %q", in)
		assert.Equal(t, display, unchanged, "input %q", in)
	}
}

func TestSubmit_BuildsRequest(t *testing.T) {
	mock := &provider.MockCompletion{
		Responses: []*provider.Response{{Text: "ok"}},
	}
	e := NewEngine(mock, "gemini-2.0-flash", 0)

	history := []provider.Turn{
		{Role: "user", Text: "hi"},
		{Role: "model", Text: "hello"},
	}
	arch := persona.Resolve(persona.Architect)

	_, err := e.Submit(context.Background(), history, "", "Design a recipe app", arch, nil)
	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)

	req := mock.Calls[0]
	assert.Equal(t, "gemini-2.0-flash", req.Model)
	assert.Contains(t, req.SystemInstruction, persona.EmptyDocumentPlaceholder)
	assert.Equal(t, history, req.History)
	assert.Equal(t, "Design a recipe app", req.UserInput)
	assert.Len(t, req.Operations, 2)
	assert.False(t, req.WebSearch)
}

func TestSubmit_ResearchPersonaDeclaresSearch(t *testing.T) {
	mock := &provider.MockCompletion{Responses: []*provider.Response{{Text: "ok"}}}
	e := NewEngine(mock, "", 0)

	_, err := e.Submit(context.Background(), nil, "doc", "compare databases",
		persona.Resolve(persona.TechDeepDive), nil)
	require.NoError(t, err)

	req := mock.Calls[0]
	assert.True(t, req.WebSearch)
	require.Len(t, req.Operations, 1)
	assert.Equal(t, persona.OpUpdateDocument, req.Operations[0].Name)
	// Research instructions are not parameterized by the document.
	assert.NotContains(t, req.SystemInstruction, "```markdown\ndoc")
}

func TestSubmit_EmptyInputRejectedUnlessAttachment(t *testing.T) {
	mock := &provider.MockCompletion{}
	e := NewEngine(mock, "", 0)
	arch := persona.Resolve(persona.Architect)

	_, err := e.Submit(context.Background(), nil, "", "", arch, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, mock.Calls)

	att := &provider.Attachment{MIMEType: "image/png", Data: []byte{1, 2}}
	_, err = e.Submit(context.Background(), nil, "", "", arch, att)
	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, att, mock.Calls[0].Attachment)
}

func TestSubmit_PropagatesProviderError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	mock := &provider.MockCompletion{Errors: []error{boom}}
	e := NewEngine(mock, "", 0)

	_, err := e.Submit(context.Background(), nil, "", "hi",
		persona.Resolve(persona.Architect), nil)
	assert.ErrorIs(t, err, boom)
}

func TestParse_DocumentUpdateAndSuggestions(t *testing.T) {
	resp := &provider.Response{
		Text: "<thinking>plan</thinking>I structured your idea.",
		Invocations: []provider.Invocation{
			{Name: persona.OpUpdateDocument, Args: map[string]any{"content": "# Recipe App\n..."}},
			{Name: persona.OpSuggestNextSteps, Args: map[string]any{"options": []any{"Mobile", "Web", "Both"}}},
		},
	}

	res := Parse(resp, persona.Resolve(persona.Architect))
	assert.Equal(t, "I structured your idea.", res.DisplayText)
	assert.Equal(t, "plan", res.Thinking)
	require.NotNil(t, res.DocumentUpdate)
	assert.Equal(t, "# Recipe App\n...", *res.DocumentUpdate)
	assert.Equal(t, []string{"Mobile", "Web", "Both"}, res.Suggestions)
}

func TestParse_FirstInvocationWins(t *testing.T) {
	resp := &provider.Response{
		Invocations: []provider.Invocation{
			{Name: persona.OpUpdateDocument, Args: map[string]any{"content": "first"}},
			{Name: persona.OpUpdateDocument, Args: map[string]any{"content": "second"}},
		},
	}

	res := Parse(resp, persona.Resolve(persona.Architect))
	require.NotNil(t, res.DocumentUpdate)
	assert.Equal(t, "first", *res.DocumentUpdate)
}

func TestParse_MalformedArgumentsAbsorbed(t *testing.T) {
	resp := &provider.Response{
		Text: "reply",
		Invocations: []provider.Invocation{
			{Name: persona.OpUpdateDocument, Args: map[string]any{}},
			{Name: persona.OpUpdateDocument, Args: map[string]any{"content": 42}},
			{Name: persona.OpSuggestNextSteps, Args: map[string]any{"options": "not a list"}},
		},
	}

	res := Parse(resp, persona.Resolve(persona.Architect))
	assert.Nil(t, res.DocumentUpdate)
	assert.Nil(t, res.Suggestions)
	assert.Equal(t, "reply", res.DisplayText)
}

func TestParse_UnpermittedOperationIgnored(t *testing.T) {
	// Research personas do not permit suggestions.
	resp := &provider.Response{
		Invocations: []provider.Invocation{
			{Name: persona.OpSuggestNextSteps, Args: map[string]any{"options": []any{"A", "B"}}},
			{Name: "unknownOperation", Args: map[string]any{"x": 1}},
		},
	}

	res := Parse(resp, persona.Resolve(persona.DeepSearch))
	assert.Nil(t, res.Suggestions)
	assert.Nil(t, res.DocumentUpdate)
}

func TestStringOptions(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, StringOptions([]any{"a", "b"}))
	assert.Equal(t, []string{"a"}, StringOptions([]any{"a", 3, nil}))
	assert.Nil(t, StringOptions("nope"))
	assert.Nil(t, StringOptions(nil))
}
