package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/models/dto"
)

// InsightGenerator produces the monthly spending insight.
type InsightGenerator interface {
	Generate(ctx context.Context, userID string, now time.Time) (models.Insight, error)
}

// VoiceParser extracts an expense from free text.
type VoiceParser interface {
	Parse(ctx context.Context, text string) models.VoiceParseResult
}

// InsightsHandler serves the AI-assisted endpoints.
type InsightsHandler struct {
	generator InsightGenerator
	voice     VoiceParser
	logger    *slog.Logger
	now       func() time.Time
}

func NewInsightsHandler(generator InsightGenerator, voice VoiceParser, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{
		generator: generator,
		voice:     voice,
		logger:    log.Component(logger, log.ComponentInsights),
		now:       time.Now,
	}
}

// Register attaches the insight and voice routes. limit runs after protect so
// requests are counted per user.
func (h *InsightsHandler) Register(mux *http.ServeMux, protect Protect, limit func(http.Handler) http.Handler) {
	mux.Handle("GET /api/insights", protect(limit(http.HandlerFunc(h.handleInsights))))
	mux.Handle("POST /api/voice/parse", protect(limit(http.HandlerFunc(h.handleVoiceParse))))
}

func (h *InsightsHandler) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	insight, err := h.generator.Generate(r.Context(), userID, h.now())
	if err != nil {
		writeError(w, r, h.logger, err, "failed to load expenses for insights")
		return
	}
	respond.JSON(w, http.StatusOK, "insights generated", insight)
}

func (h *InsightsHandler) handleVoiceParse(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	var req dto.VoiceParseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.VoiceText) == "" {
		respond.Error(w, http.StatusBadRequest, "voiceText is required")
		return
	}

	result := h.voice.Parse(r.Context(), req.VoiceText)
	respond.JSON(w, http.StatusOK, "voice input parsed", result)
}
