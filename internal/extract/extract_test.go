package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	reply    string
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGeminiRecognizeText(t *testing.T) {
	fm := &fakeModels{reply: "```\nTOTAL: KSH 1,250.00\nRestaurant XYZ\n```"}
	g := newGemini(fm, "")

	text, err := g.RecognizeText(context.Background(), Media{MIMEType: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "TOTAL: KSH 1,250.00\nRestaurant XYZ", text)
	assert.Equal(t, DefaultGeminiModel, fm.model)

	require.Len(t, fm.contents, 1)
	parts := fm.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, ocrPrompt, parts[0].Text)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
}

func TestGeminiTranscribe(t *testing.T) {
	fm := &fakeModels{reply: "  expense of 200 for lunch  "}
	text, err := newGemini(fm, "custom-model").Transcribe(context.Background(), Media{MIMEType: "audio/wav"})
	require.NoError(t, err)
	assert.Equal(t, "expense of 200 for lunch", text)
	assert.Equal(t, "custom-model", fm.model)
	assert.Equal(t, transcribePrompt, fm.contents[0].Parts[0].Text)
}

func TestGeminiErrors(t *testing.T) {
	_, err := newGemini(&fakeModels{err: errors.New("quota")}, "").Transcribe(context.Background(), Media{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")

	_, err = newGemini(&fakeModels{reply: "   "}, "").RecognizeText(context.Background(), Media{})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "a\nb", stripFences("```text\na\nb\n```"))
	assert.Equal(t, "plain", stripFences(" plain "))
	assert.Equal(t, "", stripFences("```"))
}

func TestStaticAndDisabled(t *testing.T) {
	ctx := context.Background()
	s := Static{Transcript: "income of 5 for tips", Text: "TOTAL 5"}
	got, err := s.Transcribe(ctx, Media{})
	require.NoError(t, err)
	assert.Equal(t, "income of 5 for tips", got)

	_, err = Static{}.RecognizeText(ctx, Media{})
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = Disabled{}.Transcribe(ctx, Media{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = Disabled{}.RecognizeText(ctx, Media{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
