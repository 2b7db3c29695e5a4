package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations for identities.
type UserStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	UpsertUser(ctx context.Context, user models.User) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// ExpenseStore captures persistence operations for expenses. Every call is
// scoped to the owning user.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, expense models.Expense) (models.Expense, error)
	ListExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, id int64, userID string, patch models.ExpensePatch) (models.Expense, error)
	DeleteExpense(ctx context.Context, id int64, userID string) error
	CategoryTotals(ctx context.Context, userID string, dates DateRange) ([]models.CategoryTotal, error)
	MonthlyStats(ctx context.Context, userID string, year int, month time.Month) (models.MonthlyStats, error)
}

// Store is a full backend.
type Store interface {
	UserStore
	ExpenseStore
	Close() error
}

// DateRange bounds a query by inclusive calendar dates. Nil ends are open.
type DateRange struct {
	Start *models.Date
	End   *models.Date
}

// MonthRange returns the range covering one calendar month.
func MonthRange(year int, month time.Month) DateRange {
	first, last := models.MonthBounds(year, month)
	return DateRange{Start: &first, End: &last}
}

// ExpenseFilter narrows ListExpenses. Zero values mean no filtering.
type ExpenseFilter struct {
	Category string
	Search   string
	DateRange
}
