package insights

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
)

func TestParseVoiceReply(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantSuccess bool
		wantAmount  string
		wantCat     string
		wantDesc    string
	}{
		{
			name:        "numeric amount",
			reply:       `{"amount":5000,"category":"Transport","description":"Taxi fare","success":true}`,
			wantSuccess: true, wantAmount: "5000.00", wantCat: models.CategoryTransport, wantDesc: "Taxi fare",
		},
		{
			name:        "string amount and lowercase category",
			reply:       `{"amount":"2500.5","category":"food & dining","description":null,"success":true}`,
			wantSuccess: true, wantAmount: "2500.50", wantCat: models.CategoryFood, wantDesc: "Voice expense: spent 2500 on lunch",
		},
		{
			name:        "unknown category",
			reply:       `{"amount":300,"category":"Snacks","description":"chips","success":true}`,
			wantSuccess: false, wantAmount: "300.00", wantCat: "Snacks", wantDesc: "chips",
		},
		{
			name:        "missing amount",
			reply:       `{"amount":null,"category":"Other","success":true}`,
			wantSuccess: false, wantCat: models.CategoryOther, wantDesc: "Voice expense: spent 2500 on lunch",
		},
		{
			name:        "zero amount",
			reply:       `{"amount":0,"category":"Other","success":true}`,
			wantSuccess: false, wantAmount: "0.00", wantCat: models.CategoryOther, wantDesc: "Voice expense: spent 2500 on lunch",
		},
		{
			name:        "model reports failure",
			reply:       `{"amount":100,"category":"Health","success":false}`,
			wantSuccess: false, wantAmount: "100.00", wantCat: models.CategoryHealth, wantDesc: "Voice expense: spent 2500 on lunch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVoiceReply(tt.reply, "spent 2500 on lunch")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, got.Success)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.Equal(t, tt.wantDesc, got.Description)
			if tt.wantAmount == "" {
				assert.Nil(t, got.Amount)
			} else {
				require.NotNil(t, got.Amount)
				assert.Equal(t, tt.wantAmount, got.Amount.StringFixed(2))
			}
			assert.Empty(t, got.Error)
		})
	}
}

func TestVoiceParserFailures(t *testing.T) {
	want := models.VoiceParseResult{Success: false, Error: VoiceParseFailed}

	p := NewVoiceParser(&fakeCompleter{err: errors.New("boom")}, log.Discard())
	assert.Equal(t, want, p.Parse(context.Background(), "add 500 to transport"))

	p = NewVoiceParser(&fakeCompleter{reply: "I think it was 500"}, log.Discard())
	assert.Equal(t, want, p.Parse(context.Background(), "add 500 to transport"))

	p = NewVoiceParser(nil, log.Discard())
	assert.Equal(t, want, p.Parse(context.Background(), "add 500 to transport"))

	completer := &fakeCompleter{reply: "{}"}
	p = NewVoiceParser(completer, log.Discard())
	assert.Equal(t, want, p.Parse(context.Background(), "   "))
	assert.Zero(t, completer.calls.Load())
}

func TestVoiceParserQuotesTranscript(t *testing.T) {
	completer := &fakeCompleter{reply: `{"amount":5000,"category":"Transport","success":true}`}
	p := NewVoiceParser(completer, log.Discard())

	got := p.Parse(context.Background(), `Add 5000 to "Transport"`)
	assert.True(t, got.Success)

	req := completer.lastRequest()
	assert.Equal(t, voiceMaxTokens, req.MaxTokens)
	assert.Contains(t, req.Prompt, `"Add 5000 to \"Transport\""`)
	assert.Contains(t, req.Prompt, models.CategoryBills)
}
