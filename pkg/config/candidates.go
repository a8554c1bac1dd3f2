package config

// CandidateConfig controls candidate window generation.
//
// MinSeconds/MaxSeconds are process-wide defaults; a channel's clip
// length policy overrides them per video, and per-video overrides win
// over both.
type CandidateConfig struct {
	MinSeconds   float64
	MaxSeconds   float64
	ShiftSeconds float64
	MaxPerVideo  int
	// ShortlistMax caps how many clips the shortlist may promote when
	// neither the video nor its channel sets a policy.
	ShortlistMax int
	// SendMaxCandidates caps how many scored candidates are sent to the LLM.
	SendMaxCandidates int
}

// DefaultCandidateConfig returns the built-in candidate generation defaults.
func DefaultCandidateConfig() CandidateConfig {
	return CandidateConfig{
		MinSeconds:        60,
		MaxSeconds:        120,
		ShiftSeconds:      15,
		MaxPerVideo:       400,
		ShortlistMax:      25,
		SendMaxCandidates: 120,
	}
}

// LoadCandidateConfig reads candidate generation settings from the
// environment on top of the defaults.
func LoadCandidateConfig() CandidateConfig {
	cfg := DefaultCandidateConfig()
	cfg.MinSeconds = getEnvFloat("CAND_MIN_SEC", cfg.MinSeconds)
	cfg.MaxSeconds = getEnvFloat("CAND_MAX_SEC", cfg.MaxSeconds)
	cfg.ShiftSeconds = getEnvFloat("CAND_SHIFT_SEC", cfg.ShiftSeconds)
	cfg.MaxPerVideo = getEnvInt("CAND_MAX_PER_VIDEO", cfg.MaxPerVideo)
	cfg.ShortlistMax = getEnvInt("LLM_SHORTLIST_MAX", cfg.ShortlistMax)
	cfg.SendMaxCandidates = getEnvInt("LLM_SEND_MAX_CANDIDATES", cfg.SendMaxCandidates)
	return cfg
}
