package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CategoryTotal aggregates spending for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

func (c CategoryTotal) MarshalJSON() ([]byte, error) {
	type plain CategoryTotal
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(c), fixed2(c.Total)})
}

// MonthlyStats aggregates spending for one calendar month. Income is not
// tracked, so TotalIncome is always zero.
type MonthlyStats struct {
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	ExpenseCount  int             `json:"expenseCount"`
}

func (m MonthlyStats) MarshalJSON() ([]byte, error) {
	type plain MonthlyStats
	return json.Marshal(struct {
		plain
		TotalExpenses string `json:"totalExpenses"`
		TotalIncome   string `json:"totalIncome"`
	}{plain(m), fixed2(m.TotalExpenses), m.TotalIncome.String()})
}

// MonthlySummary compares one month with the month before it.
type MonthlySummary struct {
	Year          int          `json:"year"`
	Month         int          `json:"month"`
	Current       MonthlyStats `json:"current"`
	Previous      MonthlyStats `json:"previous"`
	PercentChange float64      `json:"percentChange"`
}
