// Package events publishes expense lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/models"
)

// Routing keys.
const (
	ExpenseCreated = "expense.created"
	ExpenseUpdated = "expense.updated"
	ExpenseDeleted = "expense.deleted"
)

// ExpenseEvent describes one change to an expense. Expense is nil for deletions.
type ExpenseEvent struct {
	Type       string          `json:"type"`
	ExpenseID  int64           `json:"expenseId"`
	UserID     string          `json:"userId"`
	Expense    *models.Expense `json:"expense,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewExpenseEvent stamps an event for the given expense change.
func NewExpenseEvent(kind string, userID string, id int64, expense *models.Expense) ExpenseEvent {
	return ExpenseEvent{
		Type:       kind,
		ExpenseID:  id,
		UserID:     userID,
		Expense:    expense,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event body.
func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers expense events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event ExpenseEvent) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ExpenseEvent) error { return nil }
func (Nop) Close() error                                { return nil }
