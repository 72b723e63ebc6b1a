package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiClientTimeout = 30 * time.Second

	// DefaultGeminiModel is the text-mode model.
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultGeminiLiveModel is the realtime audio model.
	DefaultGeminiLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	// DefaultGeminiVoice is the prebuilt synthesis voice.
	DefaultGeminiVoice = "Kore"
)

// GeminiProvider implements CompletionProvider and RealtimeProvider using
// the Google Gen AI SDK against the Gemini API backend.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider for the given API key.
func NewGeminiProvider(apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, NewError("gemini", ErrorCodeAuthentication, "api key is required", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), geminiClientTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if os.Getenv("VISIONARY_DEBUG") == "true" {
		log.Printf("[Gemini] Initialized client")
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete runs one text-mode turn.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.Temperature != 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	config.Tools = buildGeminiTools(req.Operations, req.WebSearch)

	contents := buildGeminiContents(req)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	return parseGeminiResponse(resp)
}

// Connect opens a realtime session. The system instruction and operation
// schemas are fixed for the lifetime of the session.
func (p *GeminiProvider) Connect(ctx context.Context, cfg RealtimeConfig) (RealtimeConn, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiLiveModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultGeminiVoice
	}

	liveCfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
		InputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.SystemInstruction != "" {
		liveCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	liveCfg.Tools = buildGeminiTools(cfg.Operations, false)

	session, err := p.client.Live.Connect(ctx, model, liveCfg)
	if err != nil {
		return nil, NewError("gemini", ErrorCodeHandshake, err.Error(), err)
	}

	return &geminiLiveConn{
		session:   session,
		inputMIME: fmt.Sprintf("audio/pcm;rate=%d", cfg.InputSampleRate),
	}, nil
}

func buildGeminiContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}

	// The attachment, if any, precedes the user text in the final turn.
	var parts []*genai.Part
	if req.Attachment != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Attachment.MIMEType,
				Data:     req.Attachment.Data,
			},
		})
	}
	parts = append(parts, &genai.Part{Text: req.UserInput})
	contents = append(contents, &genai.Content{Role: "user", Parts: parts})

	return contents
}

func buildGeminiTools(ops []Operation, webSearch bool) []*genai.Tool {
	var tools []*genai.Tool
	if webSearch {
		tools = append(tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if len(ops) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(ops))
		for i, op := range ops {
			decls[i] = &genai.FunctionDeclaration{
				Name:        op.Name,
				Description: op.Description,
				Parameters:  toGeminiSchema(op.Parameters),
			}
		}
		tools = append(tools, &genai.Tool{FunctionDeclarations: decls})
	}
	return tools
}

// jsonSchema mirrors the subset of JSON Schema the operation declarations use.
type jsonSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]jsonSchema `json:"properties,omitempty"`
	Items       *jsonSchema           `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

// toGeminiSchema converts a JSON-schema parameter definition into the SDK's
// schema type. Unknown type strings come through as-is; the API rejects them.
func toGeminiSchema(raw json.RawMessage) *genai.Schema {
	if len(raw) == 0 {
		return nil
	}
	var js jsonSchema
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil
	}
	return convertSchema(&js)
}

func convertSchema(js *jsonSchema) *genai.Schema {
	if js == nil {
		return nil
	}
	s := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(js.Type)),
		Description: js.Description,
		Required:    js.Required,
	}
	if len(js.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(js.Properties))
		for name, prop := range js.Properties {
			p := prop
			s.Properties[name] = convertSchema(&p)
		}
	}
	if js.Items != nil {
		s.Items = convertSchema(js.Items)
	}
	return s
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if len(resp.Candidates) == 0 {
		return nil, NewError("gemini", ErrorCodeUnknown, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	out := &Response{}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.Invocations = append(out.Invocations, Invocation{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	return out, nil
}

func wrapGeminiError(err error) error {
	code := ErrorCodeTransport
	if Classify(err) == KindAuth {
		code = ErrorCodeAuthentication
	}
	return NewError("gemini", code, err.Error(), err)
}

// geminiLiveConn adapts a genai live session to RealtimeConn.
type geminiLiveConn struct {
	session   *genai.Session
	inputMIME string
}

func (c *geminiLiveConn) SendAudio(frame []byte) error {
	c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{MIMEType: c.inputMIME, Data: frame},
	})
	return nil
}

func (c *geminiLiveConn) SendToolResult(results []ToolResult) error {
	responses := make([]*genai.FunctionResponse, len(results))
	for i, r := range results {
		responses[i] = &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Response,
		}
	}
	c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	return nil
}

func (c *geminiLiveConn) Receive() (*ServerEvent, error) {
	msg, err := c.session.Receive()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, NewError("gemini", ErrorCodeTransport, err.Error(), err)
	}

	ev := &ServerEvent{}
	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			ev.Invocations = append(ev.Invocations, Invocation{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					ev.Audio = append(ev.Audio, part.InlineData.Data...)
				}
			}
		}
		if sc.InputTranscription != nil {
			ev.Transcript = sc.InputTranscription.Text
		}
		ev.Interrupted = sc.Interrupted
		ev.TurnComplete = sc.TurnComplete
	}
	return ev, nil
}

func (c *geminiLiveConn) Close() error {
	return c.session.Close()
}
