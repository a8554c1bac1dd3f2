package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Recut actions a QC plan may request.
const (
	RecutActionNone       = "none"
	RecutActionShiftStart = "shift_start"
	RecutActionShiftEnd   = "shift_end"
	RecutActionShiftBoth  = "shift_both"
	RecutActionDrop       = "drop"
)

// OpeningValidation is the verdict on a clip's first seconds.
type OpeningValidation struct {
	Pass        bool    `json:"pass"`
	OpeningType string  `json:"opening_type"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence_score"`
}

// RecutPlan describes the boundary adjustment QC asked for.
type RecutPlan struct {
	Action          string  `json:"action"`
	ShiftStartBySec float64 `json:"shift_start_by_sec"`
	ShiftEndBySec   float64 `json:"shift_end_by_sec"`
	Notes           string  `json:"notes"`
}

// QCResult is the final quality verdict on one clip.
type QCResult struct {
	Pass       bool      `json:"pass"`
	Issues     []string  `json:"issues"`
	RecutPlan  RecutPlan `json:"recut_plan"`
	Confidence float64   `json:"confidence"`
}

// ValidateOpening judges whether a clip's opening hooks immediately.
func (g *Gateway) ValidateOpening(ctx context.Context, openingText string, durationSec float64) (*OpeningValidation, error) {
	user := fmt.Sprintf(validateOpeningUserTemplate, durationSec, openingText)
	content, err := g.complete(ctx, "validate_opening", validateOpeningSystem, user, validateTemperature)
	if err != nil {
		return nil, err
	}

	var result OpeningValidation
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("validate_opening returned invalid JSON: %w", err)
	}
	return &result, nil
}

// FinalQC evaluates a clip's opening and ending and returns a recut
// plan. The caller clamps shifts and enforces duration safety before
// applying the plan.
func (g *Gateway) FinalQC(ctx context.Context, clipID string, durationSec float64, openingText, endingText string) (*QCResult, error) {
	user := fmt.Sprintf(finalQCUserTemplate, clipID, durationSec, openingText, endingText)
	content, err := g.complete(ctx, "final_qc", finalQCSystem, user, qcTemperature)
	if err != nil {
		return nil, err
	}

	var result QCResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("final_qc returned invalid JSON: %w", err)
	}
	return &result, nil
}
