package config

import "time"

// PassConfig selects the transcription model and beam size for one pass.
type PassConfig struct {
	Model    string
	BeamSize int
}

// WhisperConfig configures the two-pass transcription gateway.
//
// Pass 1 favors speed (coarse text for shortlisting); pass 2 favors
// accuracy and word-level timestamps for the promoted clips.
type WhisperConfig struct {
	ServerURL string
	Timeout   time.Duration
	Pass1     PassConfig
	Pass2     PassConfig
}

// LoadWhisperConfig reads transcription settings from the environment.
func LoadWhisperConfig() WhisperConfig {
	timeout := getEnvInt("WHISPER_TIMEOUT_SECONDS", 1800)
	return WhisperConfig{
		ServerURL: getEnvOrDefault("WHISPER_SERVER_URL", "http://localhost:8178"),
		Timeout:   time.Duration(timeout) * time.Second,
		Pass1: PassConfig{
			Model:    getEnvOrDefault("WHISPER_PASS1_MODEL", "tiny"),
			BeamSize: getEnvInt("WHISPER_PASS1_BEAM", 1),
		},
		Pass2: PassConfig{
			Model:    getEnvOrDefault("WHISPER_PASS2_MODEL", "small"),
			BeamSize: getEnvInt("WHISPER_PASS2_BEAM", 3),
		},
	}
}
