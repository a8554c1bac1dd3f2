// Package speech talks to a whisper-server instance over HTTP for the
// two transcription passes. Pass 1 is a coarse run feeding the
// shortlist; pass 2 re-runs with a larger model and word timestamps for
// the promoted clips.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// Segment is one transcribed chunk with absolute timestamps.
type Segment struct {
	Text  string              `json:"text"`
	Start float64             `json:"start"`
	End   float64             `json:"end"`
	Words []models.WordTiming `json:"words,omitempty"`
}

// Transcript is the verbose result of one inference call.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Client submits audio files to a whisper-server /inference endpoint.
// One client is created per worker and reused across jobs; the pass
// models are fixed for the worker's lifetime.
type Client struct {
	config     config.WhisperConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a transcription client from worker configuration.
func NewClient(cfg config.WhisperConfig, logger *slog.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "speech"),
	}
}

// TranscribePass1 runs the fast coarse pass over the full audio file.
func (c *Client) TranscribePass1(ctx context.Context, audioPath string) (*Transcript, error) {
	return c.infer(ctx, audioPath, c.config.Pass1, false)
}

// TranscribePass2 runs the accurate pass with word-level timestamps.
func (c *Client) TranscribePass2(ctx context.Context, audioPath string) (*Transcript, error) {
	return c.infer(ctx, audioPath, c.config.Pass2, true)
}

// infer uploads the audio file as multipart form data and decodes the
// verbose JSON response.
func (c *Client) infer(ctx context.Context, audioPath string, pass config.PassConfig, wordTimestamps bool) (*Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"model":           pass.Model,
		"beam_size":       strconv.Itoa(pass.BeamSize),
	}
	if wordTimestamps {
		fields["word_timestamps"] = "true"
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := c.config.ServerURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("Submitting transcription",
		"audio", filepath.Base(audioPath),
		"model", pass.Model,
		"word_timestamps", wordTimestamps)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("whisper server returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var transcript Transcript
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		return nil, fmt.Errorf("invalid JSON from whisper server: %w", err)
	}

	c.logger.Info("Transcription complete",
		"model", pass.Model,
		"segments", len(transcript.Segments))
	return &transcript, nil
}
