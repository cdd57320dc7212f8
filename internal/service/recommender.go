package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

// ErrExternalServiceUnavailable covers a missing API key and any failed call.
var ErrExternalServiceUnavailable = errors.New("recommendation service unavailable")

const (
	NotConfiguredMessage = "Recommendation service is not configured (missing GROQ_API_KEY)."
	UnavailableMessage   = "Recommendation service is currently unavailable."
	emptyMessage         = "No recommendation generated."

	systemPrompt = "You are an industrial energy optimization assistant for manufacturing plants."
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Recommender asks an OpenAI-compatible chat API (Groq) for operator advice.
type Recommender struct {
	client  chatCompleter
	model   string
	timeout time.Duration
}

// NewRecommender returns an unconfigured Recommender when apiKey is empty.
func NewRecommender(apiKey, baseURL, model string, timeout time.Duration) *Recommender {
	r := &Recommender{model: model, timeout: timeout}
	if apiKey == "" {
		return r
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	r.client = openai.NewClientWithConfig(cfg)
	return r
}

// Generate never fails: problems are logged and replaced by a fixed message.
func (r *Recommender) Generate(ctx context.Context, res domain.AnalysisResult) string {
	if r == nil || r.client == nil {
		return NotConfiguredMessage
	}
	text, err := r.generate(ctx, res)
	if err == nil {
		return text
	}
	log.Warn().Err(err).Str("machine_id", res.MachineID).Msg("recommendation request failed")
	return UnavailableMessage
}

func (r *Recommender) generate(ctx context.Context, res domain.AnalysisResult) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("missing GROQ_API_KEY: %w", ErrExternalServiceUnavailable)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(res)},
		},
		Temperature: 0.2,
		MaxTokens:   220,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return emptyMessage, nil
	}
	if text := strings.TrimSpace(resp.Choices[0].Message.Content); text != "" {
		return text, nil
	}
	return emptyMessage, nil
}

// Prompt renders the user message for one analysis result.
func Prompt(res domain.AnalysisResult) string {
	return fmt.Sprintf("Machine ID: %s. "+
		"Anomaly status: %s. "+
		"Efficiency score: %v. "+
		"Energy wasted (kWh): %v. "+
		"Predicted energy cost (INR): %d. "+
		"Suggest practical steps to reduce energy consumption and improve efficiency in manufacturing machines. "+
		"Provide a concise recommendation (3-6 bullet points) with actionable maintenance/operations suggestions.",
		res.MachineID, res.AnomalyStatus, res.EfficiencyScore, res.EnergyWasted, res.PredictedCost)
}
