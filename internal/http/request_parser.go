package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kashela/internal/services"
	"kashela/internal/store"
)

const maxJSONBody = 1 << 20

// errBadRequest marks malformed input that should produce a 422.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readUpload extracts the "file" part of a multipart request. cleanup closes
// the part and removes any temporary files.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (up services.Upload, cleanup func(), err error) {
	// Room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return services.Upload{}, nil, errTooLarge
		}
		return services.Upload{}, nil, badRequest("invalid multipart body: %v", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return services.Upload{}, nil, badRequest("missing file field")
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	cleanup = func() {
		_ = f.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return services.Upload{Filename: hdr.Filename, ContentType: ct, Body: f}, cleanup, nil
}

var errTooLarge = errors.New("request body too large")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// parseMonthParams reads year and month, defaulting each to the current UTC
// month when absent. Malformed numbers are an error.
func parseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	now = now.UTC()
	p := MonthParams{Year: now.Year(), Month: int(now.Month())}
	var err error
	if p.Year, err = intParam(query, "year", p.Year); err != nil {
		return MonthParams{}, err
	}
	if p.Month, err = intParam(query, "month", p.Month); err != nil {
		return MonthParams{}, err
	}
	return p, nil
}

// parseListFilter reads optional year, month and limit. Without year there is
// no date filter.
func parseListFilter(query url.Values) (store.ListFilter, error) {
	var f store.ListFilter
	var err error
	if f.Year, err = intParam(query, "year", 0); err != nil {
		return f, err
	}
	if f.Month, err = intParam(query, "month", 0); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(query, "limit", 0); err != nil {
		return f, err
	}
	if f.Limit < 0 {
		return f, badRequest("limit must not be negative")
	}
	return f, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be an integer", key)
	}
	return n, nil
}

// parseTimestamp accepts RFC 3339 or a bare YYYY-MM-DD date (UTC midnight).
// An empty string yields the zero time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest("invalid date %q: use RFC 3339 or YYYY-MM-DD", s)
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
