// Package transcribe wraps the speech-to-text capability consumed by the
// transcription worker. The engine itself is external; this package only
// defines the calling contract and an HTTP client for a whisper-style
// transcription server.
package transcribe

import (
	"context"
	"errors"
)

// ErrEmptyTranscript is returned when the engine answers successfully but
// produces no text. The worker treats it like any other capability failure.
var ErrEmptyTranscript = errors.New("transcribe: empty transcript")

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the engine's answer for one recording.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Transcriber converts a stored media artifact into text. Implementations
// must honor context cancellation; the dispatch layer bounds every call with
// a deadline.
type Transcriber interface {
	Transcribe(ctx context.Context, storageRef string) (*Result, error)
}
