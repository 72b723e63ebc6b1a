package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the text-mode model for the OpenAI backend.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements CompletionProvider against any OpenAI-compatible
// endpoint. It carries no realtime surface and no web-search capability;
// research personas degrade to plain reasoning when it is selected.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates an OpenAI provider for the given API key.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, NewError("openai", ErrorCodeAuthentication, "api key is required", nil)
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey)}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete runs one text-mode turn. Only image attachments can be carried
// on the chat completions API; anything else is rejected rather than
// silently dropped from the message.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if att := req.Attachment; att != nil && !strings.HasPrefix(att.MIMEType, "image/") {
		return nil, NewError("openai", ErrorCodeUnknown,
			fmt.Sprintf("unsupported attachment type %q: only images can be sent", att.MIMEType), nil)
	}

	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	messages = append(messages, userMessage(req))

	var tools []openai.Tool
	for _, op := range req.Operations {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        op.Name,
				Description: op.Description,
				Parameters:  op.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Tools:       tools,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		code := ErrorCodeTransport
		if Classify(err) == KindAuth {
			code = ErrorCodeAuthentication
		}
		return nil, NewError("openai", code, err.Error(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError("openai", ErrorCodeUnknown, "no choices in response", nil)
	}

	choice := resp.Choices[0]
	out := &Response{Text: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		// Undecodable arguments come through empty; the turn engine treats
		// missing required arguments as "operation absent".
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		out.Invocations = append(out.Invocations, Invocation{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func userMessage(req Request) openai.ChatCompletionMessage {
	att := req.Attachment
	if att == nil || !strings.HasPrefix(att.MIMEType, "image/") {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserInput,
		}
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", att.MIMEType,
		base64.StdEncoding.EncodeToString(att.Data))
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
			},
			{Type: openai.ChatMessagePartTypeText, Text: req.UserInput},
		},
	}
}
