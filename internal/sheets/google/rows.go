package google

import (
	"fmt"
	"strconv"
	"strings"

	"kashela/internal/core"
)

// Columns: date, type, category, description, amount, user_id, id.
const idColumn = "G"

func transactionRow(t core.StoredTransaction) []any {
	return []any{
		t.Timestamp.UTC().Format("2006-01-02"),
		string(t.Type),
		t.Category,
		t.Description,
		t.Amount.StringFixed(2),
		t.UserID,
		t.ID,
	}
}

func containsID(values [][]any, id string) bool {
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) > 0 && cols[0] == id {
			return true
		}
	}
	return false
}

// a1 quotes sheet for A1 notation.
func a1(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
