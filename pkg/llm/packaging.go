package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Packaging is honest title/caption/hashtag copy grounded in the
// clip's transcript.
type Packaging struct {
	KeySentence string   `json:"key_sentence"`
	Title       string   `json:"title"`
	Caption     string   `json:"caption"`
	Hashtags    []string `json:"hashtags"`
	Confidence  float64  `json:"packaging_confidence"`
}

// Package generates final packaging copy from the clip's transcript.
func (g *Gateway) Package(ctx context.Context, clipID string, durationSec float64, transcript string) (*Packaging, error) {
	user := fmt.Sprintf(packagingUserTemplate, clipID, durationSec, transcript)
	content, err := g.complete(ctx, "packaging", packagingSystem, user, packagingTemperature)
	if err != nil {
		return nil, err
	}

	var result Packaging
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("packaging returned invalid JSON: %w", err)
	}
	return &result, nil
}
