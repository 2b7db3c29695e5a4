package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hongminglow/expense-tracker-be/internal/cache"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

const (
	insightMaxTokens = 500
	generateTimeout  = 45 * time.Second
	defaultCacheSize = 1024
	defaultCacheTTL  = 10 * time.Minute

	defaultConfidence = 0.7
)

var (
	defaultMessage     = "Your spending patterns look normal this period."
	defaultSuggestions = []string{"Consider tracking your daily expenses", "Set a budget for each category"}
)

// Fallback is returned whenever the model cannot produce a usable answer.
func Fallback() models.Insight {
	return models.Insight{
		Message:     "Unable to generate AI insights at the moment. Keep tracking your expenses for better financial awareness!",
		Suggestions: []string{"Review your largest expense categories", "Set spending limits for discretionary categories"},
		Trend:       models.TrendStable,
		Confidence:  0.5,
	}
}

// ExpenseLister is the read side of the expense store the generator needs.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, userID string, filter storage.ExpenseFilter) ([]models.Expense, error)
}

// GeneratorOptions tunes prompt content and result caching.
type GeneratorOptions struct {
	Currency  string
	CacheTTL  time.Duration
	CacheSize int
}

// Generator produces month-over-month spending insights.
type Generator struct {
	expenses  ExpenseLister
	completer Completer
	currency  string
	cache     *cache.LRU[models.Insight]
	group     singleflight.Group
	logger    *slog.Logger

	// versions counts invalidations per user. A generation only caches its
	// result if the version it started under is still current.
	mu       sync.Mutex
	versions map[string]uint64
}

func NewGenerator(expenses ExpenseLister, completer Completer, opts GeneratorOptions, logger *slog.Logger) *Generator {
	if completer == nil {
		completer = Disabled{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	return &Generator{
		expenses:  expenses,
		completer: completer,
		currency:  opts.Currency,
		cache:     cache.NewLRU[models.Insight](opts.CacheSize, opts.CacheTTL),
		logger:    log.Component(logger, log.ComponentInsights),
		versions:  make(map[string]uint64),
	}
}

// Generate returns the insight for the month containing now. Model failures
// yield Fallback; only store failures are returned as errors.
func (g *Generator) Generate(ctx context.Context, userID string, now time.Time) (models.Insight, error) {
	key := cacheKey(userID, now)
	if cached, ok := g.cache.Get(key); ok {
		return cached, nil
	}

	version := g.version(userID)
	flight := key + "#" + strconv.FormatUint(version, 10)
	v, err, _ := g.group.Do(flight, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
		defer cancel()
		return g.generate(ctx, key, userID, version, now)
	})
	if err != nil {
		return models.Insight{}, err
	}
	return v.(models.Insight), nil
}

// Invalidate drops every cached insight of userID. Generations already in
// flight finish but do not cache, and later calls start a fresh one.
func (g *Generator) Invalidate(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.versions[userID]++
	g.cache.DeletePrefix(userID + "|")
}

func (g *Generator) version(userID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.versions[userID]
}

// store caches insight unless userID was invalidated after version was read.
func (g *Generator) store(key, userID string, version uint64, insight models.Insight) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.versions[userID] != version {
		return false
	}
	g.cache.Set(key, insight)
	return true
}

func (g *Generator) generate(ctx context.Context, key, userID string, version uint64, now time.Time) (models.Insight, error) {
	prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)

	var current, previous []models.Expense
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		current, err = g.expenses.ListExpenses(egctx, userID, storage.ExpenseFilter{DateRange: storage.MonthRange(now.Year(), now.Month())})
		return err
	})
	eg.Go(func() error {
		var err error
		previous, err = g.expenses.ListExpenses(egctx, userID, storage.ExpenseFilter{DateRange: storage.MonthRange(prev.Year(), prev.Month())})
		return err
	})
	if err := eg.Wait(); err != nil {
		return models.Insight{}, fmt.Errorf("load expenses for insights: %w", err)
	}

	prompt, err := buildInsightPrompt(current, previous, g.currency)
	if err != nil {
		return models.Insight{}, err
	}

	reply, err := g.completer.Complete(ctx, CompletionRequest{
		System:    insightSystemPrompt,
		Prompt:    prompt,
		MaxTokens: insightMaxTokens,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "Insight completion failed, using fallback",
			log.FieldOperation, log.OpGenerate, log.FieldUserID, userID, log.FieldError, err)
		return Fallback(), nil
	}

	insight, err := parseInsight(reply)
	if err != nil {
		g.logger.WarnContext(ctx, "Insight reply unparseable, using fallback",
			log.FieldOperation, log.OpParse, log.FieldUserID, userID, log.FieldError, err)
		return Fallback(), nil
	}

	if !g.store(key, userID, version, insight) {
		g.logger.DebugContext(ctx, "Expenses changed during generation, not caching insight",
			log.FieldOperation, log.OpGenerate, log.FieldUserID, userID)
	}
	return insight, nil
}

func cacheKey(userID string, now time.Time) string {
	return userID + "|" + now.Format("2006-01")
}

const insightSystemPrompt = "You are a personal finance assistant that reviews expense records and gives short, encouraging, practical advice. Reply with a single JSON object only."

type promptExpense struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func toPromptExpenses(list []models.Expense) []promptExpense {
	out := make([]promptExpense, 0, len(list))
	for _, e := range list {
		out = append(out, promptExpense{
			Category:    e.Category,
			Amount:      e.Amount.StringFixed(2),
			Date:        e.Date.String(),
			Description: e.Description,
		})
	}
	return out
}

func buildInsightPrompt(current, previous []models.Expense, currency string) (string, error) {
	cur, err := json.Marshal(toPromptExpenses(current))
	if err != nil {
		return "", fmt.Errorf("encode current expenses: %w", err)
	}
	prev, err := json.Marshal(toPromptExpenses(previous))
	if err != nil {
		return "", fmt.Errorf("encode previous expenses: %w", err)
	}

	var b strings.Builder
	b.WriteString("Review this month's expenses against last month's.\n\n")
	fmt.Fprintf(&b, "This month:\n%s\n\nLast month:\n%s\n\n", cur, prev)
	if currency != "" {
		fmt.Fprintf(&b, "Amounts are in %s; use it when quoting figures.\n", currency)
	}
	b.WriteString(`Return JSON with these keys:
- "message": a friendly summary of the spending pattern, at most 100 words
- "suggestions": two or three concrete tips
- "budgetAlert": a warning if a category looks unusually high, otherwise null
- "trend": one of "increasing", "decreasing", "stable"
- "confidence": a number from 0 to 1`)
	return b.String(), nil
}

type insightReply struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	BudgetAlert *string  `json:"budgetAlert"`
	Trend       string   `json:"trend"`
	Confidence  *float64 `json:"confidence"`
}

// parseInsight decodes a model reply, filling defaults for missing fields.
func parseInsight(content string) (models.Insight, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		content = "{}"
	}
	var reply insightReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return models.Insight{}, fmt.Errorf("decode insight reply: %w", err)
	}

	insight := models.Insight{
		Message:     strings.TrimSpace(reply.Message),
		Suggestions: nonEmpty(reply.Suggestions),
		Trend:       models.Trend(strings.ToLower(strings.TrimSpace(reply.Trend))),
		Confidence:  defaultConfidence,
	}
	if insight.Message == "" {
		insight.Message = defaultMessage
	}
	if len(insight.Suggestions) == 0 {
		insight.Suggestions = append([]string(nil), defaultSuggestions...)
	}
	if reply.BudgetAlert != nil {
		insight.BudgetAlert = strings.TrimSpace(*reply.BudgetAlert)
	}
	if !insight.Trend.Valid() {
		insight.Trend = models.TrendStable
	}
	if reply.Confidence != nil && *reply.Confidence != 0 {
		insight.Confidence = min(1, max(0, *reply.Confidence))
	}
	return insight, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
