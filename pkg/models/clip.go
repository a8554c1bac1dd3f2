package models

import "time"

// WordTiming is one transcribed word with absolute timestamps in seconds.
// The pipeline stores clip-relative timings (word minus clip start) once a
// clip has been mapped from the full pass-2 transcript.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ScoreBreakdown holds the per-signal heuristic scores that the fusion
// formula combines into Clip.HeuristicScore.
type ScoreBreakdown struct {
	Hook        float64 `json:"hook"`
	Finance     float64 `json:"finance"`
	Action      float64 `json:"action"`
	Payoff      float64 `json:"payoff"`
	Clarity     float64 `json:"clarity"`
	Pacing      float64 `json:"pacing"`
	RiskPenalty float64 `json:"risk_penalty"`
	WPM         float64 `json:"wpm"`
}

// Clip is one candidate window cut from a video. Identity is a UUID assigned
// at candidate emission and carried through every stage payload and LLM
// exchange; stores only ever update clips by id.
type Clip struct {
	ID       string    `json:"id"`
	VideoID  string    `json:"video_id"`
	Phase    ClipPhase `json:"phase"`
	Start    float64   `json:"start_seconds"`
	End      float64   `json:"end_seconds"`
	Strategy Strategy  `json:"strategy"`

	TranscriptPass1 string       `json:"transcript_pass1,omitempty"`
	TranscriptPass2 string       `json:"transcript_pass2,omitempty"`
	Words           []WordTiming `json:"words,omitempty"`

	HeuristicScore float64         `json:"heuristic_score"`
	Breakdown      *ScoreBreakdown `json:"score_breakdown,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`

	LLMScore  float64  `json:"llm_score"`
	HookText  string   `json:"hook_text,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	RiskFlags []string `json:"risk_flags,omitempty"`

	KeySentence         string   `json:"key_sentence,omitempty"`
	Caption             string   `json:"caption,omitempty"`
	Hashtags            []string `json:"hashtags,omitempty"`
	PackagingConfidence float64  `json:"packaging_confidence,omitempty"`

	// TimingOffset accumulates every start adjustment made after pass-2
	// word timings were captured (QC shift, snap-and-clean). Subtitle
	// synthesis subtracts it so cue times line up with the rendered file.
	TimingOffset float64 `json:"timing_offset"`
	WasRecut     bool    `json:"was_recut"`

	Approved      bool   `json:"approved"`
	PreviewPath   string `json:"preview_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	SubtitlePath  string `json:"subtitle_path,omitempty"`
	Error         string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	return c.End - c.Start
}

// HasRiskFlag reports whether the clip carries the given risk flag.
func (c *Clip) HasRiskFlag(flag string) bool {
	for _, f := range c.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}
