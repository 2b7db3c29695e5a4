package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending record owned by one user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MarshalJSON always renders the amount with two fraction digits.
func (e Expense) MarshalJSON() ([]byte, error) {
	type plain Expense
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain(e), fixed2(e.Amount)})
}

// ExpensePatch carries the fields of a partial update. Nil fields are left untouched.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	Date        *Date
}

// fixed2 formats an amount the way NUMERIC(12,2) columns print it.
func fixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}
