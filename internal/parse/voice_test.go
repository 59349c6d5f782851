package parse

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kashela/internal/core"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestVoiceParser() *VoiceParser {
	return &VoiceParser{Now: func() time.Time { return fixedNow }}
}

func TestVoiceParser_Parse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantType   core.TransactionType
		wantAmount string
		wantCat    string
		wantDesc   string
	}{
		{"expense with description", "expense of 1000 for food grocery shopping", core.Expense, "1000", "food", "grocery shopping"},
		{"income defaults description", "income of 500 for salary", core.Income, "500", "salary", "salary"},
		{"mixed case and spacing", "  Expense   OF 2,500.50  FOR   Transport  uber to town ", core.Expense, "2500.5", "transport", "uber to town"},
		{"leading filler words", "please record an income of 300 for gift from mum", core.Income, "300", "gift", "from mum"},
		{"for before of", "expense for rent of 15000", core.Expense, "15000", "rent", "of 15000"},
		{"first of and for win", "expense of 10 for tea of 20 for coffee", core.Expense, "10", "tea", "of 20 for coffee"},
		{"income wins when both present", "expense income of 40 for refund", core.Income, "40", "refund", "refund"},
	}

	p := newTestVoiceParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, rec.Type)
			assert.Equal(t, tt.wantAmount, rec.Amount.String())
			assert.Equal(t, tt.wantCat, rec.Category)
			assert.Equal(t, tt.wantDesc, rec.Description)
			assert.True(t, rec.Timestamp.Equal(fixedNow))
		})
	}
}

func TestVoiceParser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", ReasonMissingType},
		{"no type", "spent 100 for food", ReasonMissingType},
		{"no of", "expense 100 for food", ReasonMissingAmount},
		{"of is last", "expense for food of", ReasonMissingAmount},
		{"offer is not of", "expense offer 100 for food", ReasonMissingAmount},
		{"non numeric", "expense of abc for food", ReasonInvalidAmount},
		{"zero", "expense of 0 for food", ReasonInvalidAmount},
		{"negative", "income of -5 for salary", ReasonInvalidAmount},
		{"no for", "expense of 100 food", ReasonMissingCategory},
		{"for is last", "expense of 100 for", ReasonMissingCategory},
		{"fortune is not for", "expense of 100 fortune food", ReasonMissingCategory},
	}

	p := newTestVoiceParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.reason, pe.Reason)
		})
	}
}

func TestVoiceParser_NegativeAmountWrapsValidation(t *testing.T) {
	_, err := newTestVoiceParser().Parse("expense of -1 for food")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.True(t, IsParseError(err))
}

func TestVoiceParser_ZeroValueUsesWallClock(t *testing.T) {
	var p VoiceParser
	before := time.Now()
	rec, err := p.Parse("income of 1 for tips")
	require.NoError(t, err)
	assert.False(t, rec.Timestamp.Before(before))
}

func TestVoiceParser_LongDescription(t *testing.T) {
	words := strings.TrimSpace(strings.Repeat("and then some more words ", 24))
	rec, err := newTestVoiceParser().Parse("expense of 100 for food " + words)
	require.NoError(t, err)
	assert.Equal(t, "food", rec.Category)
	assert.Equal(t, words, rec.Description)
	assert.Greater(t, len(rec.Description), core.MaxDescriptionLength)
}
