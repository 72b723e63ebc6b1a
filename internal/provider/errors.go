package provider

import (
	"errors"
	"strings"
)

// Error codes carried by Error.
const (
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeTransport      = "transport_error"
	ErrorCodeHandshake      = "handshake_error"
	ErrorCodeUnknown        = "unknown_error"
)

// Error is a provider-facing failure. All errors crossing the boundary
// between a protocol component and the app layer are wrapped in one.
type Error struct {
	Provider      string `json:"provider"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	StatusCode    int    `json:"status_code,omitempty"`
	OriginalError error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the original error.
func (e *Error) Unwrap() error {
	return e.OriginalError
}

// NewError creates a new provider error.
func NewError(provider, code, message string, original error) *Error {
	return &Error{
		Provider:      provider,
		Code:          code,
		Message:       message,
		OriginalError: original,
	}
}

// Kind is the classification outcome for a provider failure.
type Kind int

const (
	// KindTransport is any failure that does not implicate the credential.
	KindTransport Kind = iota
	// KindAuth means the credential is invalid or unsupported; the caller
	// must clear it and force re-entry.
	KindAuth
)

// authMarkers are the provider error fragments that indicate a bad or
// unsupported credential. Matching is deliberately on literal substrings
// for compatibility with the hosted API's error strings; Classify is the
// single place to swap in structured codes should the SDK grow them.
var authMarkers = []string{
	"404",
	"requested entity was not found",
	"401",
	"unauthenticated",
	"api keys are not supported",
}

// Classify sorts a provider failure into the auth/transport taxonomy.
// A typed *Error with an authentication code classifies as auth directly;
// anything else falls back to case-insensitive substring matching.
func Classify(err error) Kind {
	if err == nil {
		return KindTransport
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Code == ErrorCodeAuthentication {
		return KindAuth
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return KindAuth
		}
	}
	return KindTransport
}
