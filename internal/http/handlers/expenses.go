package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hongminglow/expense-tracker-be/internal/expenses"
	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/models/dto"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// ExpenseService is the expense behavior the handler depends on.
type ExpenseService interface {
	Create(ctx context.Context, userID string, req dto.ExpenseRequest) (models.Expense, error)
	List(ctx context.Context, userID string, q expenses.ListQuery) ([]models.Expense, error)
	Update(ctx context.Context, userID string, id int64, req dto.ExpenseRequest) (models.Expense, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// ExpenseHandler serves the expense CRUD endpoints.
type ExpenseHandler struct {
	svc    ExpenseService
	logger *slog.Logger
}

func NewExpenseHandler(svc ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{svc: svc, logger: log.Component(logger, log.ComponentExpense)}
}

// Register attaches expense routes to the mux.
func (h *ExpenseHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /api/expenses", protect(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/expenses", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("PUT /api/expenses/{id}", protect(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("PATCH /api/expenses/{id}", protect(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/expenses/{id}", protect(http.HandlerFunc(h.handleDelete)))
}

func (h *ExpenseHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.ExpenseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err, "failed to create expense")
		return
	}
	respond.JSON(w, http.StatusCreated, "expense created", created)
}

func (h *ExpenseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.svc.List(r.Context(), userID, expenses.ListQuery{
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Range:     q.Get("range"),
	})
	if err != nil {
		writeError(w, r, h.logger, err, "failed to list expenses")
		return
	}
	respond.JSON(w, http.StatusOK, "expenses retrieved", list)
}

func (h *ExpenseHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	var req dto.ExpenseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.svc.Update(r.Context(), userID, id, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, r, h.logger, err, "failed to update expense")
		return
	}
	respond.JSON(w, http.StatusOK, "expense updated", updated)
}

func (h *ExpenseHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := expenseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, r, h.logger, err, "failed to delete expense")
		return
	}
	respond.JSON(w, http.StatusOK, "expense deleted", dto.DeleteResponse{Success: true})
}

func expenseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		respond.Error(w, http.StatusBadRequest, "invalid expense id")
		return 0, false
	}
	return id, true
}
