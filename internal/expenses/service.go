// Package expenses implements validated expense writes and filtered listing.
package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/events"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/models/dto"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Invalidator drops derived per-user state after the user's expenses change.
type Invalidator interface {
	Invalidate(userID string)
}

// ListQuery holds raw list parameters as received from the client.
type ListQuery struct {
	Category  string
	Search    string
	StartDate string
	EndDate   string
	Range     string
}

// Service owns expense validation and the side effects of writes.
type Service struct {
	store       storage.ExpenseStore
	publisher   events.Publisher
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires the service. publisher and invalidator may be nil.
func NewService(store storage.ExpenseStore, publisher events.Publisher, invalidator Invalidator, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      log.Component(logger, log.ComponentExpense),
		now:         time.Now,
	}
}

// Create validates req and stores a new expense for userID.
func (s *Service) Create(ctx context.Context, userID string, req dto.ExpenseRequest) (models.Expense, error) {
	expense, err := validateCreate(req)
	if err != nil {
		return models.Expense{}, err
	}
	expense.UserID = userID

	created, err := s.store.CreateExpense(ctx, expense)
	if err != nil {
		return models.Expense{}, err
	}

	s.afterWrite(ctx, log.OpCreate, events.NewExpenseEvent(events.ExpenseCreated, userID, created.ID, &created))
	return created, nil
}

// List returns the user's expenses narrowed by q.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]models.Expense, error) {
	dates, err := ResolveDateRange(s.now(), q.Range, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	category := q.Category
	if normalized, ok := models.NormalizeCategory(category); ok {
		category = normalized
	}
	return s.store.ListExpenses(ctx, userID, storage.ExpenseFilter{
		Category:  category,
		Search:    q.Search,
		DateRange: dates,
	})
}

// Update applies the fields present in req to the owned expense.
func (s *Service) Update(ctx context.Context, userID string, id int64, req dto.ExpenseRequest) (models.Expense, error) {
	patch, err := validatePatch(req)
	if err != nil {
		return models.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, id, userID, patch)
	if err != nil {
		return models.Expense{}, err
	}

	s.afterWrite(ctx, log.OpUpdate, events.NewExpenseEvent(events.ExpenseUpdated, userID, id, &updated))
	return updated, nil
}

// Delete removes the owned expense.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.store.DeleteExpense(ctx, id, userID); err != nil {
		return err
	}
	s.afterWrite(ctx, log.OpDelete, events.NewExpenseEvent(events.ExpenseDeleted, userID, id, nil))
	return nil
}

// afterWrite runs the best-effort side effects of a committed write.
func (s *Service) afterWrite(ctx context.Context, op string, event events.ExpenseEvent) {
	s.logger.DebugContext(ctx, "Expense written",
		log.FieldOperation, op,
		log.FieldUserID, event.UserID,
		log.FieldExpenseID, event.ExpenseID)

	if s.invalidator != nil {
		s.invalidator.Invalidate(event.UserID)
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish expense event",
			log.FieldOperation, log.OpPublish,
			log.FieldExpenseID, event.ExpenseID,
			"event_type", event.Type,
			log.FieldError, err)
	}
}
