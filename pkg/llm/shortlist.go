package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Limits for the shortlist exchange. Segment text is truncated so a
// full batch stays inside the model's context window.
const (
	segmentTextLimit = 2000
	clipTextLimit    = 1500
)

// SegmentInput is one candidate window sent for shortlisting. ID is the
// clip UUID assigned at candidate emission.
type SegmentInput struct {
	ID    string  `json:"id"`
	Start float64 `json:"start_sec"`
	End   float64 `json:"end_sec"`
	Text  string  `json:"text"`
}

// ShortlistPick is one clip the model selected.
type ShortlistPick struct {
	ID         string   `json:"id"`
	Start      float64  `json:"start_sec"`
	End        float64  `json:"end_sec"`
	ViralScore float64  `json:"viral_score"`
	HookText   string   `json:"hook_text"`
	Caption    string   `json:"caption"`
	Reason     string   `json:"reason"`
	RiskFlags  []string `json:"risk_flags"`
	Keywords   []string `json:"keywords"`
}

// Shortlist asks the model to pick up to maxClips of the given
// candidate segments. Picks without a valid id are discarded; the
// caller matches picks back to stored clips by id.
func (g *Gateway) Shortlist(ctx context.Context, segments []SegmentInput, maxClips int) ([]ShortlistPick, error) {
	payload := make([]SegmentInput, len(segments))
	for i, s := range segments {
		s.Text = truncateRunes(s.Text, segmentTextLimit)
		payload[i] = s
	}
	segmentsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}

	user := fmt.Sprintf(shortlistUserTemplate, maxClips, segmentsJSON)
	content, err := g.complete(ctx, "shortlist", shortlistSystem, user, shortlistTemperature)
	if err != nil {
		return nil, err
	}

	var response struct {
		Clips []ShortlistPick `json:"clips"`
	}
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("shortlist returned invalid JSON: %w", err)
	}

	known := make(map[string]bool, len(segments))
	for _, s := range segments {
		known[s.ID] = true
	}

	var picks []ShortlistPick
	for _, p := range response.Clips {
		if !known[p.ID] {
			g.logger.Warn("Shortlist pick with unknown id discarded", "id", p.ID)
			continue
		}
		picks = append(picks, p)
	}
	if len(picks) > maxClips {
		picks = picks[:maxClips]
	}

	g.logger.Info("Shortlist complete", "sent", len(segments), "picked", len(picks))
	return picks, nil
}
