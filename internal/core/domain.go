package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	SourceManual  Source = "manual"
	SourceVoice   Source = "voice"
	SourceReceipt Source = "receipt"
)

type (
	// TransactionType is the direction of money movement.
	TransactionType string

	// Source records which entry path produced a transaction.
	Source string

	// TransactionRecord is the shape produced by the parsers and consumed by
	// storage and reporting. Build it with NewTransactionRecord.
	TransactionRecord struct {
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Timestamp   time.Time       `json:"timestamp"`
	}

	// StoredTransaction is a TransactionRecord as persisted for a user.
	StoredTransaction struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Source    Source    `json:"source"`
		ImageURL  string    `json:"image_url,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		TransactionRecord
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrMissingTimestamp = errors.New("timestamp cannot be zero")
	ErrDescriptionLong  = errors.New("description too long (max 500 characters)")
)

// MaxDescriptionLength caps descriptions typed into the manual entry form.
// Parsed descriptions are free text and are not checked against it.
const MaxDescriptionLength = 500

// CheckDescriptionLength reports ErrDescriptionLong when s has more than
// MaxDescriptionLength characters.
func CheckDescriptionLength(s string) error {
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return ErrDescriptionLong
	}
	return nil
}

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (s Source) Validate() error {
	switch s {
	case SourceManual, SourceVoice, SourceReceipt:
		return nil
	default:
		return errors.New("invalid source")
	}
}

// NewTransactionRecord validates its inputs and returns a record. A zero
// timestamp is replaced by now.
func NewTransactionRecord(amount decimal.Decimal, typ TransactionType, category, description string, ts time.Time) (TransactionRecord, error) {
	if ts.IsZero() {
		ts = time.Now()
	}
	rec := TransactionRecord{
		Amount:      amount,
		Type:        typ,
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		Timestamp:   ts,
	}
	if err := rec.Validate(); err != nil {
		return TransactionRecord{}, err
	}
	return rec, nil
}

func (r TransactionRecord) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if r.Category == "" {
		return ErrEmptyCategory
	}
	if r.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// InMonth reports whether the record's timestamp falls in the given calendar
// month, evaluated in the timestamp's own location.
func (r TransactionRecord) InMonth(year, month int) bool {
	return r.Timestamp.Year() == year && int(r.Timestamp.Month()) == month
}

func (t StoredTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transaction id cannot be empty")
	}
	if strings.TrimSpace(t.UserID) == "" {
		return errors.New("user id cannot be empty")
	}
	return t.TransactionRecord.Validate()
}
