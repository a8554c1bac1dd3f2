package speech

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

func testConfig(serverURL string) config.WhisperConfig {
	return config.WhisperConfig{
		ServerURL: serverURL,
		Timeout:   5 * time.Second,
		Pass1:     config.PassConfig{Model: "tiny", BeamSize: 1},
		Pass2:     config.PassConfig{Model: "small", BeamSize: 3},
	}
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audio.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func TestTranscribePass1(t *testing.T) {
	var gotModel, gotBeam, gotFormat, gotWordTS string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inference", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		gotModel = r.FormValue("model")
		gotBeam = r.FormValue("beam_size")
		gotFormat = r.FormValue("response_format")
		gotWordTS = r.FormValue("word_timestamps")

		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello world","segments":[{"text":" hello world","start":0.0,"end":2.5}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), slog.Default())
	transcript, err := client.TranscribePass1(context.Background(), writeTempAudio(t))
	require.NoError(t, err)

	assert.Equal(t, "tiny", gotModel)
	assert.Equal(t, "1", gotBeam)
	assert.Equal(t, "verbose_json", gotFormat)
	assert.Empty(t, gotWordTS)
	require.Len(t, transcript.Segments, 1)
	assert.Equal(t, 2.5, transcript.Segments[0].End)
}

func TestTranscribePass2_RequestsWordTimestamps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "small", r.FormValue("model"))
		assert.Equal(t, "3", r.FormValue("beam_size"))
		assert.Equal(t, "true", r.FormValue("word_timestamps"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hi","segments":[{"text":"hi","start":0,"end":1,"words":[{"word":"hi","start":0.1,"end":0.4}]}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), slog.Default())
	transcript, err := client.TranscribePass2(context.Background(), writeTempAudio(t))
	require.NoError(t, err)

	require.Len(t, transcript.Segments, 1)
	require.Len(t, transcript.Segments[0].Words, 1)
	assert.Equal(t, "hi", transcript.Segments[0].Words[0].Word)
}

func TestTranscribe_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), slog.Default())
	_, err := client.TranscribePass1(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestTranscribe_MissingAudioFile(t *testing.T) {
	client := NewClient(testConfig("http://localhost:0"), slog.Default())
	_, err := client.TranscribePass1(context.Background(), "/nonexistent/audio.m4a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open audio file")
}

func TestTranscribe_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), slog.Default())
	_, err := client.TranscribePass1(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}
