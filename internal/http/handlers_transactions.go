package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"kashela/internal/auth"
	"kashela/internal/core"
	klog "kashela/internal/log"
	"kashela/internal/services"
)

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Timestamp   string          `json:"timestamp"`
}

func (req createTransactionRequest) record() (core.TransactionRecord, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.TransactionRecord{}, badRequest("type must be income or expense")
	}
	when := req.Timestamp
	if when == "" {
		when = req.Date
	}
	ts, err := parseTimestamp(when)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	description := sanitizeInput(req.Description)
	if err := core.CheckDescriptionLength(description); err != nil {
		return core.TransactionRecord{}, err
	}
	return core.NewTransactionRecord(req.Amount, typ, sanitizeInput(req.Category), description, ts)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, u auth.User) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := req.record()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Create(r.Context(), u.ID, rec, core.SourceManual, "")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, u auth.User) {
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	txs, err := s.deps.Transactions.List(r.Context(), u.ID, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.StoredTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, u auth.User) {
	t, err := s.deps.Transactions.Get(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, u auth.User) {
	id := r.PathValue("id")
	if err := s.deps.Transactions.Delete(r.Context(), u.ID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Transaction %s deleted successfully", id),
	})
}

// handleVoiceTransaction accepts either a transcript as JSON or an audio file
// as multipart form data.
func (s *Server) handleVoiceTransaction(w http.ResponseWriter, r *http.Request, u auth.User) {
	var (
		entry services.Entry
		err   error
	)
	if isMultipart(r) {
		up, cleanup, uerr := readUpload(w, r, s.deps.MaxUploadSize)
		if uerr != nil {
			writeServiceError(w, r, uerr)
			return
		}
		defer cleanup()
		entry, err = s.deps.Entries.VoiceAudio(r.Context(), u.ID, up)
	} else {
		text, terr := decodeText(r)
		if terr != nil {
			writeServiceError(w, r, terr)
			return
		}
		entry, err = s.deps.Entries.VoiceText(r.Context(), u.ID, text)
	}
	s.writeEntry(w, r, entry, err)
}

// handleReceiptTransaction accepts either receipt text as JSON or a receipt
// image as multipart form data.
func (s *Server) handleReceiptTransaction(w http.ResponseWriter, r *http.Request, u auth.User) {
	var (
		entry services.Entry
		err   error
	)
	if isMultipart(r) {
		up, cleanup, uerr := readUpload(w, r, s.deps.MaxUploadSize)
		if uerr != nil {
			writeServiceError(w, r, uerr)
			return
		}
		defer cleanup()
		entry, err = s.deps.Entries.ReceiptImage(r.Context(), u.ID, up)
	} else {
		text, terr := decodeText(r)
		if terr != nil {
			writeServiceError(w, r, terr)
			return
		}
		entry, err = s.deps.Entries.ReceiptText(r.Context(), u.ID, text)
	}
	s.writeEntry(w, r, entry, err)
}

func (s *Server) writeEntry(w http.ResponseWriter, r *http.Request, entry services.Entry, err error) {
	if err != nil {
		klogFrom(r).InfoContext(r.Context(), "Entry rejected",
			klog.FieldSource, r.URL.Path,
			klog.FieldError, err)
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func decodeText(r *http.Request) (string, error) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", badRequest("text is required")
	}
	return req.Text, nil
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, u auth.User) {
	p, err := parseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rep, err := s.deps.Transactions.MonthlyReport(r.Context(), u.ID, p.Year, p.Month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
