// Package uploads validates and stores user-supplied audio and image files.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "images"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file")
)

// Store persists an upload and returns a reference to it (a path or URL).
type Store interface {
	Save(ctx context.Context, kind Kind, name string, r io.Reader) (string, error)
}

// Policy holds the allowed content types and size cap for uploads.
type Policy struct {
	MaxSize    int64
	ImageTypes []string
	AudioTypes []string
}

// Check validates a declared content type for kind. Parameters such as
// "; charset=" are ignored.
func (p Policy) Check(kind Kind, contentType string) error {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	allowed := p.AudioTypes
	prefix := "audio/"
	if kind == KindImage {
		allowed, prefix = p.ImageTypes, "image/"
	}
	if !strings.HasPrefix(base, prefix) {
		return fmt.Errorf("%w: expected %s*, got %q", ErrUnsupportedType, prefix, contentType)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, base) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, base)
	}
	return nil
}

// ReadLimited reads all of r, failing with ErrTooLarge past MaxSize bytes.
func (p Policy) ReadLimited(r io.Reader) ([]byte, error) {
	limit := p.MaxSize
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// ObjectName builds "{user}_{YYYYmmdd_HHMMSS}_{name}" with name reduced to
// its base and stripped of path separators.
func ObjectName(userID, original string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return -1
		case r == ' ':
			return '_'
		default:
			return r
		}
	}, base)
	return fmt.Sprintf("%s_%s_%s", userID, at.Format("20060102_150405"), base)
}
