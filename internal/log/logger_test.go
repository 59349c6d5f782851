package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})
	l.Info("hello", FieldUserID, "u1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentHTTP || entry[FieldUserID] != "u1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: ParseLevel("warn"), Output: &buf})
	l.Info("dropped")
	l.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	l := New(DefaultConfig()).WithComponent(ComponentWorker)
	if l.Component() != ComponentWorker {
		t.Fatalf("component = %q", l.Component())
	}
	if l.With("k", "v").Component() != ComponentWorker {
		t.Fatal("With should keep component")
	}
}

func TestNewContextAndFromContext(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}

	logger := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	if got := FromContext(NewContext(context.Background(), logger)); got != logger {
		t.Fatal("expected logger stored in context")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithRequestID("req_1").WithUser("").WithError(errors.New("boom")).WithTransaction("t1", "expense", "food")
	if _, ok := f[FieldUserID]; ok {
		t.Fatal("empty user should be omitted")
	}
	if f[FieldError] != "boom" || f[FieldTransactionID] != "t1" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatal("ToSlice length mismatch")
	}
}
