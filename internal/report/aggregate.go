// Package report summarizes a user's transactions for one month.
package report

import (
	"github.com/shopspring/decimal"

	"kashela/internal/core"
)

// Aggregate sums records by type and category. It has no side effects and
// the result does not depend on input order. Callers are expected to pass
// only one user's records for one month; see Monthly.
func Aggregate(records []core.TransactionRecord) core.ReportTotals {
	totals := core.ReportTotals{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		IncomeBreakdown:  map[string]decimal.Decimal{},
		ExpenseBreakdown: map[string]decimal.Decimal{},
	}
	for _, r := range records {
		switch r.Type {
		case core.Income:
			totals.TotalIncome = totals.TotalIncome.Add(r.Amount)
			totals.IncomeBreakdown[r.Category] = addTo(totals.IncomeBreakdown, r.Category, r.Amount)
		case core.Expense:
			totals.TotalExpenses = totals.TotalExpenses.Add(r.Amount)
			totals.ExpenseBreakdown[r.Category] = addTo(totals.ExpenseBreakdown, r.Category, r.Amount)
		}
	}
	totals.NetAmount = totals.TotalIncome.Sub(totals.TotalExpenses)
	return totals
}

func addTo(m map[string]decimal.Decimal, key string, amount decimal.Decimal) decimal.Decimal {
	if cur, ok := m[key]; ok {
		return cur.Add(amount)
	}
	return amount
}

// Monthly filters records to the given month and aggregates them.
func Monthly(year, month int, records []core.TransactionRecord) core.MonthlyReport {
	inMonth := make([]core.TransactionRecord, 0, len(records))
	for _, r := range records {
		if r.InMonth(year, month) {
			inMonth = append(inMonth, r)
		}
	}
	return core.MonthlyReport{
		Year:             year,
		Month:            month,
		TransactionCount: len(inMonth),
		ReportTotals:     Aggregate(inMonth),
	}
}

// Records projects stored transactions to their record part.
func Records(stored []core.StoredTransaction) []core.TransactionRecord {
	out := make([]core.TransactionRecord, len(stored))
	for i, s := range stored {
		out[i] = s.TransactionRecord
	}
	return out
}
