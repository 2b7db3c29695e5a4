package dto

import "github.com/shopspring/decimal"

// ExpenseRequest is the body of both create and update calls. On create every
// field is required; on update only present fields are applied. Amount accepts
// a JSON number or a numeric string.
type ExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Date        *string          `json:"date"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type VoiceParseRequest struct {
	VoiceText string `json:"voiceText"`
}
