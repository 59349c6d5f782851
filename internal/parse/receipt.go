package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kashela/internal/core"
)

const (
	numberPattern   = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	currencyPattern = `(?:(?:kshs|ksh|kes|usd|eur|gbp)\.?|[$€£])`
)

// amountPatterns are tried most specific first. Each has one capture group
// holding the number. The first labeledPatterns entries match a TOTAL or
// AMOUNT label.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btotal\b[\s:=\-]*` + currencyPattern + `?[\s:]*` + numberPattern),
	regexp.MustCompile(`(?i)\bamount\b[\s:=\-]*` + currencyPattern + `?[\s:]*` + numberPattern),
	regexp.MustCompile(`(?i)` + currencyPattern + `\s*` + numberPattern),
}

const labeledPatterns = 2

var bareNumber = regexp.MustCompile(`^` + numberPattern + `$`)

const defaultReceiptDescription = "Receipt transaction"

// ReceiptParser extracts an expense from OCR text. It never returns income.
type ReceiptParser struct {
	table KeywordTable
	// Now stamps parsed records. Defaults to time.Now.
	Now func() time.Time
}

// NewReceiptParser copies table; later changes to the caller's table do not
// affect the parser.
func NewReceiptParser(table KeywordTable) *ReceiptParser {
	return &ReceiptParser{table: table.normalized(), Now: time.Now}
}

func (p *ReceiptParser) Table() KeywordTable { return p.table.normalized() }

// Parse reads the amount, then walks the lines top to bottom. Marker lines
// are skipped. The first line with a table keyword fixes the category, and
// the first line longer than three characters becomes the description. A
// TOTAL or AMOUNT line that supplied the amount is a summary line and never
// becomes the description, though it may still fix the category.
func (p *ReceiptParser) Parse(text string) (core.TransactionRecord, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	m, ok := p.findAmount(lines)
	if !ok {
		return core.TransactionRecord{}, failf(ReasonAmountNotFound, nil)
	}

	category := p.table.DefaultCategory
	categorized := false
	description := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if p.table.isMarker(lower) {
			continue
		}
		if !categorized {
			if c, hit := p.table.classify(lower); hit {
				category, categorized = c, true
			}
		}
		if description == "" && len(trimmed) > 3 && !(m.labeled && i == m.line) {
			description = trimmed
		}
	}
	if description == "" {
		description = defaultReceiptDescription
	}

	rec, err := core.NewTransactionRecord(m.amount, core.Expense, category, description, p.now())
	if err != nil {
		return core.TransactionRecord{}, recordError(err)
	}
	return rec, nil
}

type amountMatch struct {
	amount  decimal.Decimal
	line    int
	labeled bool // a TOTAL or AMOUNT label introduced the number
}

// findAmount runs each pattern over every line before moving to the next
// pattern, so a TOTAL line further down beats an earlier item price.
// Candidates that do not convert to a positive number are skipped.
func (p *ReceiptParser) findAmount(lines []string) (amountMatch, bool) {
	for pi, re := range amountPatterns {
		for i, line := range lines {
			for _, sub := range re.FindAllStringSubmatch(line, -1) {
				if d, err := core.ParseAmount(sub[1]); err == nil {
					return amountMatch{amount: d, line: i, labeled: pi < labeledPatterns}, true
				}
			}
		}
	}
	for i, line := range lines {
		if p.table.isMarker(strings.ToLower(line)) {
			continue
		}
		for _, tok := range strings.Fields(line) {
			tok = strings.Trim(tok, ":;=()[]")
			if !bareNumber.MatchString(tok) {
				continue
			}
			if d, err := core.ParseAmount(tok); err == nil {
				return amountMatch{amount: d, line: i}, true
			}
		}
	}
	return amountMatch{}, false
}

func (p *ReceiptParser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
