// Package llm is a typed facade over an OpenAI-compatible chat
// completion endpoint. Five operations drive the pipeline: shortlist,
// refine, opening validation, final QC and packaging. Every operation
// requests a JSON object response and parses it strictly; malformed
// output is an error the caller can retry.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

// Operation temperatures. Selection gets a little creative freedom;
// validation and QC stay near-deterministic.
const (
	shortlistTemperature = 0.3
	refineTemperature    = 0.2
	validateTemperature  = 0.1
	qcTemperature        = 0.1
	packagingTemperature = 0.2
)

// Gateway issues chat completions against the configured provider.
// One gateway is created per worker and shared across jobs.
type Gateway struct {
	client oai.Client
	model  string
	logger *slog.Logger
}

// NewGateway creates an LLM gateway from worker configuration.
func NewGateway(cfg config.LLMConfig, logger *slog.Logger) *Gateway {
	client := oai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	return &Gateway{
		client: client,
		model:  cfg.Model,
		logger: logger.With("component", "llm"),
	}
}

// complete runs one chat completion with JSON-object output and returns
// the raw message content.
func (g *Gateway) complete(ctx context.Context, operation, system, user string, temperature float64) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	}
	params.Temperature = param.NewOpt(temperature)
	params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	g.logger.Info("Sending chat completion", "operation", operation, "model", g.model)

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion returned no choices", operation)
	}
	return resp.Choices[0].Message.Content, nil
}

// truncateRunes limits a string to n runes without splitting UTF-8.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
