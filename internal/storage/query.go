package storage

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/expense-tracker-be/internal/models"
)

// Dialect holds the SQL differences between backends that the shared query
// builders need to know about.
type Dialect struct {
	// Bind renders the nth (1-based) placeholder.
	Bind func(n int) string
	// DateBind and AmountBind render typed placeholders.
	DateBind   func(n int) string
	AmountBind func(n int) string
	// AmountArg encodes an amount the way the backend stores it.
	AmountArg func(d decimal.Decimal) any
	// Search renders a case-insensitive LIKE of description against bind.
	Search func(bind string) string
}

var Postgres = Dialect{
	Bind:       func(n int) string { return fmt.Sprintf("$%d", n) },
	DateBind:   func(n int) string { return fmt.Sprintf("$%d::date", n) },
	AmountBind: func(n int) string { return fmt.Sprintf("$%d::numeric", n) },
	AmountArg:  func(d decimal.Decimal) any { return d.StringFixed(2) },
	Search:     func(bind string) string { return "description ILIKE " + bind + ` ESCAPE '\'` },
}

// SQLite LIKE only folds ASCII, so both sides go through the casefold
// function the sqlite package registers. Amounts are integer cents.
var SQLite = Dialect{
	Bind:       func(int) string { return "?" },
	DateBind:   func(int) string { return "?" },
	AmountBind: func(int) string { return "?" },
	AmountArg:  func(d decimal.Decimal) any { return ToCents(d) },
	Search:     func(bind string) string { return "casefold(description) LIKE casefold(" + bind + `) ESCAPE '\'` },
}

// ToCents converts an amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents back to an amount with two fraction digits.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// EscapeLike escapes LIKE wildcards so user input matches literally with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// BuildExpenseWhere renders the WHERE predicate for an owner-scoped expense
// query. The user id is always the first argument.
func BuildExpenseWhere(d Dialect, userID string, filter ExpenseFilter) (string, []any) {
	conds := []string{"user_id = " + d.Bind(1)}
	args := []any{userID}

	add := func(format string, bind func(int) string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, bind(len(args))))
	}

	if c := strings.TrimSpace(filter.Category); c != "" && !strings.EqualFold(c, models.CategoryAll) {
		add("category = %s", d.Bind, c)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("%s", func(n int) string { return d.Search(d.Bind(n)) }, "%"+EscapeLike(s)+"%")
	}
	if filter.Start != nil {
		add("date >= %s", d.DateBind, filter.Start.String())
	}
	if filter.End != nil {
		add("date <= %s", d.DateBind, filter.End.String())
	}

	return strings.Join(conds, " AND "), args
}

// BuildExpenseSet renders the SET list of a partial update, always bumping
// updated_at. Placeholders start after the first offset arguments.
func BuildExpenseSet(d Dialect, patch models.ExpensePatch, now any, offset int) (string, []any) {
	var sets []string
	var args []any

	add := func(column string, bind func(int) string, arg any) {
		args = append(args, arg)
		sets = append(sets, column+" = "+bind(offset+len(args)))
	}

	if patch.Amount != nil {
		add("amount", d.AmountBind, d.AmountArg(*patch.Amount))
	}
	if patch.Description != nil {
		add("description", d.Bind, *patch.Description)
	}
	if patch.Category != nil {
		add("category", d.Bind, *patch.Category)
	}
	if patch.Date != nil {
		add("date", d.DateBind, patch.Date.String())
	}
	add("updated_at", d.Bind, now)

	return strings.Join(sets, ", "), args
}
