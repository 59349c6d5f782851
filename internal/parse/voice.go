package parse

import (
	"strings"
	"time"

	"kashela/internal/core"
)

// VoiceParser turns a transcribed sentence of the form
//
//	<type> of <amount> for <category> [description words...]
//
// into a transaction. Matching is case-insensitive and token based, so
// "offer" never matches "of".
type VoiceParser struct {
	// Now stamps parsed records. Defaults to time.Now.
	Now func() time.Time
}

func NewVoiceParser() *VoiceParser {
	return &VoiceParser{Now: time.Now}
}

func (p *VoiceParser) Parse(text string) (core.TransactionRecord, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return core.TransactionRecord{}, failf(ReasonMissingType, nil)
	}

	typ, ok := detectType(tokens)
	if !ok {
		return core.TransactionRecord{}, failf(ReasonMissingType, nil)
	}

	amountTok, ok := tokenAfter(tokens, "of")
	if !ok {
		return core.TransactionRecord{}, failf(ReasonMissingAmount, nil)
	}
	amount, err := core.ParseDecimal(amountTok)
	if err != nil {
		return core.TransactionRecord{}, failf(ReasonInvalidAmount, err)
	}

	forIdx := indexOf(tokens, "for")
	if forIdx < 0 || forIdx == len(tokens)-1 {
		return core.TransactionRecord{}, failf(ReasonMissingCategory, nil)
	}
	category := tokens[forIdx+1]

	description := category
	if rest := tokens[forIdx+2:]; len(rest) > 0 {
		description = strings.Join(rest, " ")
	}

	rec, err := core.NewTransactionRecord(amount, typ, category, description, p.now())
	if err != nil {
		return core.TransactionRecord{}, recordError(err)
	}
	return rec, nil
}

func (p *VoiceParser) now() time.Time {
	if p == nil || p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// detectType looks for "income" before "expense".
func detectType(tokens []string) (core.TransactionType, bool) {
	if indexOf(tokens, string(core.Income)) >= 0 {
		return core.Income, true
	}
	if indexOf(tokens, string(core.Expense)) >= 0 {
		return core.Expense, true
	}
	return "", false
}

func tokenAfter(tokens []string, word string) (string, bool) {
	i := indexOf(tokens, word)
	if i < 0 || i == len(tokens)-1 {
		return "", false
	}
	return tokens[i+1], true
}

func indexOf(tokens []string, word string) int {
	for i, t := range tokens {
		if t == word {
			return i
		}
	}
	return -1
}
