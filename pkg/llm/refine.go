package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// RefineInput is one shortlisted clip sent for editorial polish.
type RefineInput struct {
	ID        string   `json:"id"`
	Start     float64  `json:"start_sec"`
	End       float64  `json:"end_sec"`
	Text      string   `json:"text"`
	RiskFlags []string `json:"risk_flags"`
	Keywords  []string `json:"keywords"`
}

// RefineResult is the polished editorial data for one clip.
type RefineResult struct {
	ID        string   `json:"id"`
	Start     float64  `json:"start_sec"`
	End       float64  `json:"end_sec"`
	HookText  string   `json:"hook_text"`
	Caption   string   `json:"caption"`
	RiskFlags []string `json:"risk_flags"`
	Keywords  []string `json:"keywords"`
}

// Refine polishes hook text and captions for shortlisted clips. Results
// are keyed by clip id; clips the model omitted keep their existing
// editorial data.
func (g *Gateway) Refine(ctx context.Context, clips []RefineInput) (map[string]RefineResult, error) {
	payload := make([]RefineInput, len(clips))
	for i, c := range clips {
		c.Text = truncateRunes(c.Text, clipTextLimit)
		if c.RiskFlags == nil {
			c.RiskFlags = []string{}
		}
		if c.Keywords == nil {
			c.Keywords = []string{}
		}
		payload[i] = c
	}
	clipsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode clips: %w", err)
	}

	user := fmt.Sprintf(refineUserTemplate, clipsJSON)
	content, err := g.complete(ctx, "refine", refineSystem, user, refineTemperature)
	if err != nil {
		return nil, err
	}

	var response struct {
		Clips []RefineResult `json:"clips"`
	}
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("refine returned invalid JSON: %w", err)
	}

	known := make(map[string]bool, len(clips))
	for _, c := range clips {
		known[c.ID] = true
	}

	results := make(map[string]RefineResult, len(response.Clips))
	for _, r := range response.Clips {
		if !known[r.ID] {
			g.logger.Warn("Refine result with unknown id discarded", "id", r.ID)
			continue
		}
		results[r.ID] = r
	}

	g.logger.Info("Refine complete", "sent", len(clips), "refined", len(results))
	return results, nil
}
