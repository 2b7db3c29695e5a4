package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Trend describes the direction of spending between two periods.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Valid reports whether t is one of the known trends.
func (t Trend) Valid() bool {
	switch t {
	case TrendIncreasing, TrendDecreasing, TrendStable:
		return true
	}
	return false
}

// Insight is an AI-generated assessment of a user's recent spending.
type Insight struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	BudgetAlert string   `json:"budgetAlert,omitempty"`
	Trend       Trend    `json:"trend"`
	Confidence  float64  `json:"confidence"`
}

// VoiceParseResult is the structured expense extracted from a spoken phrase.
type VoiceParseResult struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
	Success     bool             `json:"success"`
	Error       string           `json:"error,omitempty"`
}

func (v VoiceParseResult) MarshalJSON() ([]byte, error) {
	type plain VoiceParseResult
	out := struct {
		plain
		Amount *string `json:"amount,omitempty"`
	}{plain: plain(v)}
	if v.Amount != nil {
		s := fixed2(*v.Amount)
		out.Amount = &s
	}
	return json.Marshal(out)
}
