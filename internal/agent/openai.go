package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"mico/internal/core"
)

const systemPrompt = `You turn personal finance requests into JSON. Respond with ONLY a JSON object, no prose:
{
  "intent": "record" | "query",
  "date": "YYYY-MM-DD",
  "description": "...",
  "amount": "-12.50",
  "category": "...",
  "startDate": "YYYY-MM-DD",
  "endDate": "YYYY-MM-DD"
}
For "record": date, description, amount (decimal units, negative for spending, positive for income), category.
For "query": optional category, optional startDate+endDate (always both or neither).
Allowed categories: %s.`

// LLMParser asks a chat model to structure the request and falls back to
// the rules parser when the model is unreachable or returns garbage.
type LLMParser struct {
	client   *openai.Client
	model    string
	fallback *RulesParser
}

func NewLLMParser(apiKey, baseURL, model string) *LLMParser {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLMParser{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		fallback: NewRulesParser(),
	}
}

type llmResponse struct {
	Intent      string `json:"intent"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (p *LLMParser) Parse(ctx context.Context, text string) (Request, error) {
	req, err := p.parseLLM(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "LLM parse failed, falling back to rules", "error", err)
		return p.fallback.Parse(ctx, text)
	}
	return req, nil
}

func (p *LLMParser) parseLLM(ctx context.Context, text string) (Request, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, strings.Join(core.CanonicalCategories, ", ")),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return Request{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Request{}, fmt.Errorf("empty completion")
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return Request{}, fmt.Errorf("decode completion: %w", err)
	}
	return out.toRequest()
}

func (r llmResponse) toRequest() (Request, error) {
	switch r.Intent {
	case "record":
		date, err := core.ParseDate(r.Date)
		if err != nil {
			return Request{}, fmt.Errorf("record date: %w", err)
		}
		cents, err := core.ParseSignedDecimalToCents(r.Amount)
		if err != nil {
			return Request{}, fmt.Errorf("record amount: %w", err)
		}
		return Request{
			Intent: IntentRecord,
			Transaction: core.Transaction{
				Date:        date,
				Description: r.Description,
				Amount:      core.Money{Cents: cents},
				Category:    r.Category,
				Status:      core.StatusCompleted,
			},
		}, nil
	case "query":
		var f core.QueryFilter
		if r.Category != "" {
			c := r.Category
			f.Category = &c
		}
		if r.StartDate != "" && r.EndDate != "" {
			start, err := core.ParseDate(r.StartDate)
			if err != nil {
				return Request{}, fmt.Errorf("query start date: %w", err)
			}
			end, err := core.ParseDate(r.EndDate)
			if err != nil {
				return Request{}, fmt.Errorf("query end date: %w", err)
			}
			f.StartDate = &start
			f.EndDate = &end
		}
		return Request{Intent: IntentQuery, Filter: f}, nil
	default:
		return Request{}, fmt.Errorf("unknown intent %q", r.Intent)
	}
}
