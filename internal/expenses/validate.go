package expenses

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/models/dto"
)

const maxDescriptionLen = 255

// 10 integer digits plus 2 fraction digits, matching NUMERIC(12,2).
var maxAmount = decimal.New(1, 10)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// validateCreate checks that every field is present and well formed.
func validateCreate(req dto.ExpenseRequest) (models.Expense, error) {
	if req.Amount == nil {
		return models.Expense{}, invalid("amount", "is required")
	}
	if req.Description == nil {
		return models.Expense{}, invalid("description", "is required")
	}
	if req.Category == nil {
		return models.Expense{}, invalid("category", "is required")
	}
	if req.Date == nil {
		return models.Expense{}, invalid("date", "is required")
	}

	patch, err := validatePatch(req)
	if err != nil {
		return models.Expense{}, err
	}
	return models.Expense{
		Amount:      *patch.Amount,
		Description: *patch.Description,
		Category:    *patch.Category,
		Date:        *patch.Date,
	}, nil
}

// validatePatch checks only the fields that are present.
func validatePatch(req dto.ExpenseRequest) (models.ExpensePatch, error) {
	var patch models.ExpensePatch

	if req.Amount != nil {
		amount, err := validateAmount(*req.Amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		switch {
		case desc == "":
			return patch, invalid("description", "cannot be empty")
		case utf8.RuneCountInString(desc) > maxDescriptionLen:
			return patch, invalid("description", "must be at most %d characters", maxDescriptionLen)
		}
		patch.Description = &desc
	}
	if req.Category != nil {
		category, ok := models.NormalizeCategory(*req.Category)
		if !ok {
			return patch, invalid("category", "must be one of: %s", strings.Join(models.Categories, ", "))
		}
		patch.Category = &category
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date)
		if err != nil {
			return patch, invalid("date", "must be formatted as YYYY-MM-DD")
		}
		patch.Date = &date
	}
	return patch, nil
}

func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case !amount.IsPositive():
		return decimal.Decimal{}, invalid("amount", "must be greater than zero")
	case !amount.Equal(amount.Round(2)):
		return decimal.Decimal{}, invalid("amount", "must have at most 2 decimal places")
	case amount.GreaterThanOrEqual(maxAmount):
		return decimal.Decimal{}, invalid("amount", "must be less than %s", maxAmount.String())
	}
	return amount.Round(2), nil
}
