// Package extract turns uploaded media into text: speech to text for voice
// notes and OCR for receipt images.
package extract

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no extraction engine is configured.
var ErrUnavailable = errors.New("text extraction is not configured")

// ErrEmptyResult is returned when the engine produced no text.
var ErrEmptyResult = errors.New("no text extracted")

// Media is an in-memory upload handed to an engine.
type Media struct {
	MIMEType string
	Data     []byte
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio Media) (string, error)
}

type TextRecognizer interface {
	RecognizeText(ctx context.Context, image Media) (string, error)
}

// Disabled implements both interfaces and always fails with ErrUnavailable.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, Media) (string, error)    { return "", ErrUnavailable }
func (Disabled) RecognizeText(context.Context, Media) (string, error) { return "", ErrUnavailable }

// Static returns fixed text. It backs tests and offline demos.
type Static struct {
	Transcript string
	Text       string
	Err        error
}

func (s Static) Transcribe(context.Context, Media) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Transcript == "" {
		return "", ErrEmptyResult
	}
	return s.Transcript, nil
}

func (s Static) RecognizeText(context.Context, Media) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Text == "" {
		return "", ErrEmptyResult
	}
	return s.Text, nil
}
