package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/expenses"
	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// AnalyticsService is the reporting behavior the handler depends on.
type AnalyticsService interface {
	Categories(ctx context.Context, userID string, dates storage.DateRange) ([]models.CategoryTotal, error)
	Monthly(ctx context.Context, userID string, year, month int) (models.MonthlyStats, error)
	Summary(ctx context.Context, userID string, year, month int) (models.MonthlySummary, error)
}

// AnalyticsHandler serves the category and monthly reports.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: log.Component(logger, log.ComponentAnalytics), now: time.Now}
}

// Register attaches analytics routes to the mux.
func (h *AnalyticsHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /api/analytics/categories", protect(http.HandlerFunc(h.handleCategories)))
	mux.Handle("GET /api/analytics/monthly/{year}/{month}", protect(http.HandlerFunc(h.handleMonthly)))
	mux.Handle("GET /api/analytics/summary/{year}/{month}", protect(http.HandlerFunc(h.handleSummary)))
}

func (h *AnalyticsHandler) handleCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	dates, err := expenses.ResolveDateRange(h.now(), q.Get("range"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, h.logger, err, "failed to resolve date range")
		return
	}

	totals, err := h.svc.Categories(r.Context(), userID, dates)
	if err != nil {
		writeError(w, r, h.logger, err, "failed to load category totals")
		return
	}
	respond.JSON(w, http.StatusOK, "category totals retrieved", totals)
}

func (h *AnalyticsHandler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Monthly(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, r, h.logger, err, "failed to load monthly stats")
		return
	}
	respond.JSON(w, http.StatusOK, "monthly stats retrieved", stats)
}

func (h *AnalyticsHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, r, h.logger, err, "failed to load monthly summary")
		return
	}
	respond.JSON(w, http.StatusOK, "monthly summary retrieved", summary)
}

func yearMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid month")
		return 0, 0, false
	}
	return year, month, true
}
