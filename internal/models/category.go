package models

import "strings"

// Expense categories.
const (
	CategoryFood          = "Food & Dining"
	CategoryTransport     = "Transport"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryBills         = "Bills & Utilities"
	CategoryHealth        = "Health"
	CategoryEducation     = "Education"
	CategoryOther         = "Other"
)

// CategoryAll is the list filter value that disables category filtering.
const CategoryAll = "all"

// Categories is the closed set of accepted categories in display order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealth,
	CategoryEducation,
	CategoryOther,
}

// NormalizeCategory matches name case-insensitively against the closed set and
// returns the canonical spelling.
func NormalizeCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// IsValidCategory reports whether name is exactly one of the known categories.
func IsValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
