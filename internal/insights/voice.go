package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/models"
)

const (
	voiceMaxTokens = 200

	// VoiceParseFailed is the error reported when the phrase cannot be parsed.
	VoiceParseFailed = "Failed to parse voice input. Please try again."
)

const voiceSystemPrompt = "You extract structured expense records from short spoken phrases. Reply with a single JSON object only."

// VoiceParser extracts amount, category and description from a transcript.
type VoiceParser struct {
	completer Completer
	logger    *slog.Logger
}

func NewVoiceParser(completer Completer, logger *slog.Logger) *VoiceParser {
	if completer == nil {
		completer = Disabled{}
	}
	return &VoiceParser{completer: completer, logger: log.Component(logger, log.ComponentInsights)}
}

// Parse never returns an error; failures are reported in the result.
func (p *VoiceParser) Parse(ctx context.Context, text string) models.VoiceParseResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return failedVoiceParse()
	}

	prompt, err := buildVoicePrompt(text)
	if err != nil {
		return failedVoiceParse()
	}

	reply, err := p.completer.Complete(ctx, CompletionRequest{
		System:    voiceSystemPrompt,
		Prompt:    prompt,
		MaxTokens: voiceMaxTokens,
	})
	if err != nil {
		p.logger.WarnContext(ctx, "Voice completion failed", log.FieldOperation, log.OpParse, log.FieldError, err)
		return failedVoiceParse()
	}

	result, err := parseVoiceReply(reply, text)
	if err != nil {
		p.logger.WarnContext(ctx, "Voice reply unparseable", log.FieldOperation, log.OpParse, log.FieldError, err)
		return failedVoiceParse()
	}
	return result
}

func failedVoiceParse() models.VoiceParseResult {
	return models.VoiceParseResult{Success: false, Error: VoiceParseFailed}
}

func buildVoicePrompt(text string) (string, error) {
	quoted, err := json.Marshal(text)
	if err != nil {
		return "", fmt.Errorf("encode voice text: %w", err)
	}
	return fmt.Sprintf(`Extract the expense described by this phrase: %s

Categories: %s.

Examples of phrases: "Add 5000 to Transport", "Spent 2500 on lunch", "3000 for shopping at mall".

Return JSON with these keys:
- "amount": the number spent without currency symbols, or null
- "category": exactly one of the categories above, or null
- "description": a short description of the purchase, or null
- "success": true only when both amount and category were found`,
		quoted, strings.Join(models.Categories, ", ")), nil
}

type voiceReply struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Success     bool             `json:"success"`
}

// parseVoiceReply decodes the model reply. The result succeeds only when the
// model says so, the amount is positive and the category is known.
func parseVoiceReply(content, text string) (models.VoiceParseResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		content = "{}"
	}
	var reply voiceReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return models.VoiceParseResult{}, fmt.Errorf("decode voice reply: %w", err)
	}

	result := models.VoiceParseResult{Description: "Voice expense: " + text}
	if reply.Description != nil && strings.TrimSpace(*reply.Description) != "" {
		result.Description = strings.TrimSpace(*reply.Description)
	}

	validAmount := false
	if reply.Amount != nil {
		amount := reply.Amount.Round(2)
		result.Amount = &amount
		validAmount = amount.IsPositive()
	}

	validCategory := false
	if reply.Category != nil {
		if category, ok := models.NormalizeCategory(*reply.Category); ok {
			result.Category = category
			validCategory = true
		} else {
			result.Category = strings.TrimSpace(*reply.Category)
		}
	}

	result.Success = reply.Success && validAmount && validCategory
	return result, nil
}
