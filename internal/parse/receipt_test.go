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

func newTestReceiptParser() *ReceiptParser {
	p := NewReceiptParser(DefaultKeywordTable())
	p.Now = func() time.Time { return fixedNow }
	return p
}

func TestReceiptParser_Parse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAmount string
		wantCat    string
		wantDesc   string
	}{
		{
			name:       "total with currency marker",
			input:      "TOTAL: KSH 1,250.00\nRestaurant XYZ\nTel: 0712345678",
			wantAmount: "1250",
			wantCat:    "food",
			wantDesc:   "Restaurant XYZ",
		},
		{
			name:       "total beats earlier item lines",
			input:      "UBER TRIP\nBase fare KES 300\nSurge KES 120\nTotal KES 420",
			wantAmount: "420",
			wantCat:    "transport",
			wantDesc:   "UBER TRIP",
		},
		{
			name:       "amount line when no total",
			input:      "KPLC Prepaid\nMeter 1234\nAmount: 2000",
			wantAmount: "2000",
			wantCat:    "utilities",
			wantDesc:   "KPLC Prepaid",
		},
		{
			name:       "subtotal is not total",
			input:      "Java House\nSubtotal 900\nVAT 144\nTotal 1044",
			wantAmount: "1044",
			wantCat:    "food",
			wantDesc:   "Java House",
		},
		{
			name:       "currency marked number",
			input:      "Century Cinema\nAdmit one\nKsh. 850",
			wantAmount: "850",
			wantCat:    "entertainment",
			wantDesc:   "Century Cinema",
		},
		{
			name:       "bare number fallback",
			input:      "Receipt #12\nMama Mboga\n150",
			wantAmount: "150",
			wantCat:    "shopping",
			wantDesc:   "Mama Mboga",
		},
		{
			name:       "first keyword line fixes category",
			input:      "City Mall Outlet\nFood court\nTOTAL 500",
			wantAmount: "500",
			wantCat:    "shopping",
			wantDesc:   "City Mall Outlet",
		},
		{
			name:       "short lines give default description",
			input:      "abc\nTOTAL 75",
			wantAmount: "75",
			wantCat:    "shopping",
			wantDesc:   "Receipt transaction",
		},
		{
			name:       "single line with currency marked price",
			input:      "Pizza Inn KES 850",
			wantAmount: "850",
			wantCat:    "food",
			wantDesc:   "Pizza Inn KES 850",
		},
		{
			name:       "item line carrying the price fixes category",
			input:      "Thanks\nKFC Burger KES 650\nPaid cash",
			wantAmount: "650",
			wantCat:    "food",
			wantDesc:   "Thanks",
		},
		{
			name:       "total line still classifies but is not the description",
			input:      "Food total 300\nShop Name Ltd",
			wantAmount: "300",
			wantCat:    "food",
			wantDesc:   "Shop Name Ltd",
		},
		{
			name:       "windows line endings",
			input:      "Naivas Supermarket\r\nTOTAL KSHS 3,400.50\r\n",
			wantAmount: "3400.5",
			wantCat:    "food",
			wantDesc:   "Naivas Supermarket",
		},
	}

	p := newTestReceiptParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, core.Expense, rec.Type)
			assert.Equal(t, tt.wantAmount, rec.Amount.String())
			assert.Equal(t, tt.wantCat, rec.Category)
			assert.Equal(t, tt.wantDesc, rec.Description)
			assert.True(t, rec.Timestamp.Equal(fixedNow))
		})
	}
}

func TestReceiptParser_AmountNotFound(t *testing.T) {
	for _, input := range []string{"", "Restaurant XYZ\nThank you", "TOTAL: KSH\nTel: none"} {
		_, err := newTestReceiptParser().Parse(input)
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "input %q", input)
		assert.Equal(t, ReasonAmountNotFound, pe.Reason)
	}
}

func TestReceiptParser_SkipsZeroCandidates(t *testing.T) {
	rec, err := newTestReceiptParser().Parse("Discount total 0.00\nBakery Delight\nKES 240")
	require.NoError(t, err)
	assert.Equal(t, "240", rec.Amount.String())
	assert.Equal(t, "food", rec.Category)
}

func TestReceiptParser_CustomTable(t *testing.T) {
	table := KeywordTable{
		Categories:      []CategoryKeywords{{Category: "health", Keywords: []string{"Pharmacy"}}},
		DefaultCategory: "misc",
	}
	p := NewReceiptParser(table)

	rec, err := p.Parse("Goodlife PHARMACY\nKSH 600")
	require.NoError(t, err)
	assert.Equal(t, "health", rec.Category)

	rec, err = p.Parse("Corner Kiosk\nKSH 60")
	require.NoError(t, err)
	assert.Equal(t, "misc", rec.Category)
}

func TestReceiptParser_LongFirstLine(t *testing.T) {
	header := strings.Repeat("Westlands branch ", 40)
	rec, err := newTestReceiptParser().Parse(header + "\nTOTAL 100")
	require.NoError(t, err)
	assert.Equal(t, "100", rec.Amount.String())
	assert.Equal(t, strings.TrimSpace(header), rec.Description)
}

func TestDefaultMarkersExcludeSummaryLabels(t *testing.T) {
	for _, m := range DefaultKeywordTable().Markers {
		assert.NotContains(t, []string{"total", "amount"}, m)
	}
}
