package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"kashela/internal/core"
	"kashela/internal/extract"
	"kashela/internal/parse"
	"kashela/internal/uploads"
)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Entry is a transaction created from voice or receipt input together with
// the text it was parsed from.
type Entry struct {
	Transaction core.StoredTransaction `json:"transaction"`
	Text        string                 `json:"text"`
}

// EntryService turns voice notes and receipts into stored transactions.
type EntryService struct {
	tx          *TransactionService
	voice       *parse.VoiceParser
	receipt     *parse.ReceiptParser
	transcriber extract.Transcriber
	ocr         extract.TextRecognizer
	files       uploads.Store
	policy      uploads.Policy
	now         func() time.Time
}

type EntryDeps struct {
	Transactions *TransactionService
	Voice        *parse.VoiceParser
	Receipt      *parse.ReceiptParser
	Transcriber  extract.Transcriber
	OCR          extract.TextRecognizer
	Files        uploads.Store
	Policy       uploads.Policy
}

func NewEntryService(d EntryDeps) *EntryService {
	s := &EntryService{
		tx:          d.Transactions,
		voice:       d.Voice,
		receipt:     d.Receipt,
		transcriber: d.Transcriber,
		ocr:         d.OCR,
		files:       d.Files,
		policy:      d.Policy,
		now:         time.Now,
	}
	if s.voice == nil {
		s.voice = parse.NewVoiceParser()
	}
	if s.receipt == nil {
		s.receipt = parse.NewReceiptParser(parse.DefaultKeywordTable())
	}
	if s.transcriber == nil {
		s.transcriber = extract.Disabled{}
	}
	if s.ocr == nil {
		s.ocr = extract.Disabled{}
	}
	return s
}

// VoiceText parses a transcript and stores the result.
func (s *EntryService) VoiceText(ctx context.Context, userID, text string) (Entry, error) {
	rec, err := s.voice.Parse(text)
	if err != nil {
		return Entry{}, err
	}
	t, err := s.tx.Create(ctx, userID, rec, core.SourceVoice, "")
	if err != nil {
		return Entry{}, err
	}
	return Entry{Transaction: t, Text: text}, nil
}

// VoiceAudio transcribes an audio upload and stores the parsed result. The
// audio itself is not kept.
func (s *EntryService) VoiceAudio(ctx context.Context, userID string, up Upload) (Entry, error) {
	data, err := s.read(uploads.KindAudio, up)
	if err != nil {
		return Entry{}, err
	}
	text, err := s.transcriber.Transcribe(ctx, extract.Media{MIMEType: baseType(up.ContentType), Data: data})
	if err != nil {
		return Entry{}, fmt.Errorf("transcribe audio: %w", err)
	}
	slog.DebugContext(ctx, "Audio transcribed", "user_id", userID, "chars", len(text))
	return s.VoiceText(ctx, userID, text)
}

// ReceiptText parses receipt text and stores the result.
func (s *EntryService) ReceiptText(ctx context.Context, userID, text string) (Entry, error) {
	return s.receiptEntry(ctx, userID, text, "")
}

// ReceiptImage stores the image, runs OCR on it and stores the parsed
// transaction with a reference to the image.
func (s *EntryService) ReceiptImage(ctx context.Context, userID string, up Upload) (Entry, error) {
	data, err := s.read(uploads.KindImage, up)
	if err != nil {
		return Entry{}, err
	}
	text, err := s.ocr.RecognizeText(ctx, extract.Media{MIMEType: baseType(up.ContentType), Data: data})
	if err != nil {
		return Entry{}, fmt.Errorf("recognize receipt: %w", err)
	}

	// Unreadable receipts leave no file behind.
	if _, err := s.receipt.Parse(text); err != nil {
		return Entry{}, err
	}

	var ref string
	if s.files != nil {
		ref, err = s.files.Save(ctx, uploads.KindImage, uploads.ObjectName(userID, up.Filename, s.now()), bytes.NewReader(data))
		if err != nil {
			return Entry{}, fmt.Errorf("store receipt image: %w", err)
		}
	}
	return s.receiptEntry(ctx, userID, text, ref)
}

// SaveUpload validates and stores a raw upload and returns its stored name
// and reference.
func (s *EntryService) SaveUpload(ctx context.Context, userID string, kind uploads.Kind, up Upload) (string, string, error) {
	if s.files == nil {
		return "", "", fmt.Errorf("uploads: %w", extract.ErrUnavailable)
	}
	data, err := s.read(kind, up)
	if err != nil {
		return "", "", err
	}
	name := uploads.ObjectName(userID, up.Filename, s.now())
	ref, err := s.files.Save(ctx, kind, name, bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	slog.InfoContext(ctx, "Upload stored", "user_id", userID, "kind", kind, "size", len(data), "ref", ref)
	return name, ref, nil
}

func (s *EntryService) receiptEntry(ctx context.Context, userID, text, imageURL string) (Entry, error) {
	rec, err := s.receipt.Parse(text)
	if err != nil {
		return Entry{}, err
	}
	t, err := s.tx.Create(ctx, userID, rec, core.SourceReceipt, imageURL)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Transaction: t, Text: text}, nil
}

func (s *EntryService) read(kind uploads.Kind, up Upload) ([]byte, error) {
	if err := s.policy.Check(kind, up.ContentType); err != nil {
		return nil, err
	}
	return s.policy.ReadLimited(up.Body)
}

func baseType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
}
