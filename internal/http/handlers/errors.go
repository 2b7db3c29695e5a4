package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/expense-tracker-be/internal/analytics"
	"github.com/hongminglow/expense-tracker-be/internal/expenses"
	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/middleware"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Protect wraps a handler with authentication.
type Protect func(http.Handler) http.Handler

// writeError maps service errors to statuses. Unknown errors are logged and
// reported as 500 with message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	var verr *expenses.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, analytics.ErrInvalidMonth), errors.Is(err, analytics.ErrInvalidYear):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "already exists")
	default:
		log.FromContext(r.Context(), logger).ErrorContext(r.Context(), message, log.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, message)
	}
}

// currentUser returns the authenticated user id. RequireAuth guarantees it on
// protected routes, so a missing id is answered with 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}
