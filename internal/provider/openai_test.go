package provider

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("")
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorCodeAuthentication, pe.Code)
}

func TestOpenAIComplete_RejectsNonImageAttachment(t *testing.T) {
	p, err := NewOpenAIProvider("test-key")
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{
		UserInput:  "summarize this",
		Attachment: &Attachment{MIMEType: "application/pdf", Data: []byte("%PDF")},
	})
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "application/pdf")
	// The rejection must not read as a credential problem.
	assert.Equal(t, KindTransport, Classify(err))
}

func TestUserMessage_ImageAttachment(t *testing.T) {
	msg := userMessage(Request{
		UserInput:  "what is in this screenshot",
		Attachment: &Attachment{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	})

	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, msg.MultiContent[0].Type)
	assert.Contains(t, msg.MultiContent[0].ImageURL.URL, "data:image/png;base64,")
	assert.Equal(t, "what is in this screenshot", msg.MultiContent[1].Text)
}

func TestUserMessage_NoAttachment(t *testing.T) {
	msg := userMessage(Request{UserInput: "hello"})
	assert.Equal(t, "hello", msg.Content)
	assert.Empty(t, msg.MultiContent)
}
