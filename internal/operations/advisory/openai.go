// Package advisory asks a language model for a second opinion on a signal.
// Its output is recorded on the signal and never changes the direction or levels.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = "gpt-4o-mini"
	recentBars   = 20
)

const systemPrompt = `You review crypto futures trade signals produced by a rule-based engine.
Reply with a single JSON object: {"confidence": <number 0-100>, "comment": "<one sentence>"}.
Confidence is how likely the setup is to reach its target before its stop.`

type OpenAIScorer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// Options configures the scorer. BaseURL is only needed for compatible gateways.
type Options struct {
	Model   string
	BaseURL string
	Timeout time.Duration
}

func NewOpenAIScorer(apiKey string, opts Options) (*OpenAIScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &OpenAIScorer{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
	}, nil
}

type scoreResponse struct {
	Confidence float64 `json:"confidence"`
	Comment    string  `json:"comment"`
}

// ScoreSignal implements provider.AdvisoryScorer.
func (s *OpenAIScorer) ScoreSignal(ctx context.Context, symbol string, rationale []string, recent []models.Price) (provider.Score, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(symbol, rationale, recent)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return provider.Score{}, provider.Wrap(provider.KindTransient, "advisory score", fmt.Errorf("OpenAI API call failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return provider.Score{}, provider.Wrap(provider.KindPermanent, "advisory score", fmt.Errorf("OpenAI returned no choices"))
	}
	return parseScore(resp.Choices[0].Message.Content)
}

func parseScore(content string) (provider.Score, error) {
	var out scoreResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return provider.Score{}, provider.Wrap(provider.KindPermanent, "advisory score", fmt.Errorf("decode response: %w", err))
	}
	if math.IsNaN(out.Confidence) {
		out.Confidence = 0
	}
	return provider.Score{
		Confidence: math.Max(0, math.Min(100, out.Confidence)),
		Comment:    strings.TrimSpace(out.Comment),
	}, nil
}

func buildPrompt(symbol string, rationale []string, recent []models.Price) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\nRationale:\n", symbol)
	for _, line := range rationale {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	if len(recent) > recentBars {
		recent = recent[len(recent)-recentBars:]
	}
	if len(recent) > 0 {
		b.WriteString("\nRecent bars (open time, open, high, low, close, volume):\n")
		for _, bar := range recent {
			fmt.Fprintf(&b, "%s %.8g %.8g %.8g %.8g %.8g\n",
				bar.OpenTime.UTC().Format(time.RFC3339), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}
	}
	return b.String()
}
