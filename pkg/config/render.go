package config

// RenderConfig controls ffmpeg output quality for preview and final cuts.
type RenderConfig struct {
	PreviewCRF    int
	PreviewPreset string
	FinalCRF      int
	FinalPreset   string
	// PadSeconds is the symmetric padding applied around every cut so
	// speech is never clipped mid-word at the boundaries.
	PadSeconds float64
}

// DefaultRenderConfig returns the built-in render defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		PreviewCRF:    28,
		PreviewPreset: "ultrafast",
		FinalCRF:      21,
		FinalPreset:   "medium",
		PadSeconds:    1.5,
	}
}

// LoadRenderConfig reads render settings from the environment on top of
// the defaults.
func LoadRenderConfig() RenderConfig {
	cfg := DefaultRenderConfig()
	cfg.PreviewCRF = getEnvInt("RENDER_PREVIEW_CRF", cfg.PreviewCRF)
	cfg.PreviewPreset = getEnvOrDefault("RENDER_PREVIEW_PRESET", cfg.PreviewPreset)
	cfg.FinalCRF = getEnvInt("RENDER_FINAL_CRF", cfg.FinalCRF)
	cfg.FinalPreset = getEnvOrDefault("RENDER_FINAL_PRESET", cfg.FinalPreset)
	cfg.PadSeconds = getEnvFloat("RENDER_PAD_SECONDS", cfg.PadSeconds)
	return cfg
}
