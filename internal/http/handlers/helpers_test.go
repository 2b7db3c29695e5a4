package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/expense-tracker-be/internal/analytics"
	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/expenses"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/middleware"
	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage/sqlite"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeProvider struct {
	identity auth.Identity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (auth.Identity, error) {
	if p.err != nil {
		return auth.Identity{}, p.err
	}
	if code != "good-code" {
		return auth.Identity{}, errors.New("bad code")
	}
	return p.identity, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	insight models.Insight
	err     error
	users   []string
}

func (g *fakeGenerator) Generate(_ context.Context, userID string, _ time.Time) (models.Insight, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users = append(g.users, userID)
	return g.insight, g.err
}

type fakeVoice struct{ texts []string }

func (v *fakeVoice) Parse(_ context.Context, text string) models.VoiceParseResult {
	v.texts = append(v.texts, text)
	return models.VoiceParseResult{Success: true, Category: models.CategoryFood, Description: "Lunch"}
}

type testEnv struct {
	t         *testing.T
	store     *sqlite.Store
	tokens    *auth.TokenManager
	provider  *fakeProvider
	generator *fakeGenerator
	voice     *fakeVoice
	handler   http.Handler
}

func newTestEnv(t *testing.T, withProvider bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.NewStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		t:         t,
		store:     store,
		tokens:    auth.NewTokenManager("test-secret", "expense-tracker", time.Hour),
		generator: &fakeGenerator{insight: models.Insight{Message: "Nice", Suggestions: []string{"Keep going"}, Trend: models.TrendStable, Confidence: 0.8}},
		voice:     &fakeVoice{},
	}

	var provider auth.IdentityProvider
	if withProvider {
		env.provider = &fakeProvider{identity: auth.Identity{Subject: "g-1", Email: "Grace@Example.com", Name: "Grace", Picture: "https://img.test/g.png"}}
		provider = env.provider
	}

	limiter := middleware.NewRateLimiter(2, log.Discard())
	t.Cleanup(limiter.Stop)

	logger := log.Discard()
	protect := Protect(middleware.RequireAuth(env.tokens))
	mux := http.NewServeMux()
	NewHealthHandler(time.Now()).Register(mux)
	NewAuthHandler(store, env.tokens, provider, false, logger).Register(mux, protect)
	NewExpenseHandler(expenses.NewService(store, nil, nil, logger), logger).Register(mux, protect)
	NewAnalyticsHandler(analytics.NewService(store), logger).Register(mux, protect)
	NewInsightsHandler(env.generator, env.voice, logger).Register(mux, protect, limiter.Middleware)
	env.handler = mux
	return env
}

// login creates a user directly in the store and returns a session token.
func (e *testEnv) login(id string) string {
	e.t.Helper()
	user, err := e.store.UpsertUser(context.Background(), models.User{ID: id, Email: id + "@example.com", Name: "User " + id})
	require.NoError(e.t, err)
	token, err := e.tokens.Generate(user)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
