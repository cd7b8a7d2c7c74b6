// Package message defines the core data types flowing through the render pipeline.
package message

import (
	"time"
)

// GenerateRequest represents an incoming render request from any transport.
type GenerateRequest struct {
	// ID is a unique identifier for this request (UUID). Assigned by the
	// renderer when empty.
	ID string `json:"id,omitempty"`

	// Script is the narration text with inline [PAUSE:Ns] markers.
	Script string `json:"script"`

	// Voice optionally overrides the configured TTS voice.
	Voice string `json:"voice,omitempty"`

	// Format optionally overrides the configured output encoding ("opus", "wav").
	Format string `json:"format,omitempty"`

	// ReceivedAt is when the request entered the service.
	ReceivedAt time.Time `json:"received_at"`
}

// RenderResult is the finished deliverable for one request.
type RenderResult struct {
	// RequestID is the originating request ID.
	RequestID string `json:"request_id"`

	// ContentType is the MIME type of Audio (e.g., "audio/opus").
	ContentType string `json:"content_type"`

	// Filename is the suggested attachment name (e.g., "meditacion.opus").
	Filename string `json:"filename"`

	// Audio is the encoded mix.
	Audio []byte `json:"-"`

	// Duration is the length of the mix.
	Duration time.Duration `json:"duration"`

	// Segments is the number of spoken chunks in the script.
	Segments int `json:"segments"`

	// Bed reports whether a background bed was mixed in.
	Bed bool `json:"bed"`
}
