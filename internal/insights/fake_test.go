package insights

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   atomic.Int32
	last    CompletionRequest
	release chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, f.err
}

func (f *fakeCompleter) setReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

func (f *fakeCompleter) lastRequest() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// fakeLister serves expenses keyed by the first day of the requested range.
type fakeLister struct {
	byStart map[string][]models.Expense
	err     error
	calls   atomic.Int32
}

func (f *fakeLister) ListExpenses(_ context.Context, _ string, filter storage.ExpenseFilter) ([]models.Expense, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if filter.Start == nil {
		return nil, nil
	}
	return f.byStart[filter.Start.String()], nil
}
