package extract

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

const (
	transcribePrompt = "Transcribe this audio recording verbatim. " +
		"Return only the spoken words as plain text, with no commentary or formatting."
	ocrPrompt = "Read all text printed on this receipt image. " +
		"Return the text exactly as it appears, one printed line per output line, with no commentary, " +
		"Markdown or code fences."
)

// contentGenerator is the subset of the genai Models service we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Transcriber and TextRecognizer with a multimodal model.
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini API client. An empty model selects DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) Transcribe(ctx context.Context, audio Media) (string, error) {
	return g.generate(ctx, transcribePrompt, audio)
}

func (g *Gemini) RecognizeText(ctx context.Context, image Media) (string, error) {
	return g.generate(ctx, ocrPrompt, image)
}

func (g *Gemini) generate(ctx context.Context, prompt string, m Media) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: m.MIMEType,
						Data:     m.Data,
					},
				},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := stripFences(resp.Text())
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

// stripFences removes a Markdown code fence the model may add despite the prompt.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
