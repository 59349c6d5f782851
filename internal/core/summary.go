package core

import "github.com/shopspring/decimal"

// ReportTotals is the category-bucketed summary of one user's month.
type ReportTotals struct {
	TotalIncome      decimal.Decimal            `json:"total_income"`
	TotalExpenses    decimal.Decimal            `json:"total_expenses"`
	NetAmount        decimal.Decimal            `json:"net_amount"`
	IncomeBreakdown  map[string]decimal.Decimal `json:"income_breakdown"`
	ExpenseBreakdown map[string]decimal.Decimal `json:"expense_breakdown"`
}

// MonthlyReport is ReportTotals scoped to a year and month.
type MonthlyReport struct {
	Year             int `json:"year"`
	Month            int `json:"month"` // 1-12
	TransactionCount int `json:"transaction_count"`
	ReportTotals
}
