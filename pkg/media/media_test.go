package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
)

func TestParseSilence(t *testing.T) {
	stderr := `
[silencedetect @ 0x55e] silence_start: 12.345
[silencedetect @ 0x55e] silence_end: 14.567 | silence_duration: 2.222
frame=  100 fps=0.0 q=-0.0 size=N/A
[silencedetect @ 0x55e] silence_start: 300.5
[silencedetect @ 0x55e] silence_end: 302 | silence_duration: 1.5
`
	silences := ParseSilence(stderr)
	require.Len(t, silences, 2)
	assert.Equal(t, candidates.Interval{Start: 12.345, End: 14.567}, silences[0])
	assert.Equal(t, candidates.Interval{Start: 300.5, End: 302}, silences[1])
}

func TestParseSilence_EndWithoutStartIgnored(t *testing.T) {
	silences := ParseSilence("[silencedetect @ 0x1] silence_end: 14.5")
	assert.Empty(t, silences)
}

func TestParseSilence_EmptyOutput(t *testing.T) {
	assert.Empty(t, ParseSilence(""))
	assert.Empty(t, ParseSilence("frame= 100 fps=0.0"))
}

func TestBuildCutArgs(t *testing.T) {
	args, err := BuildCutArgs(CutSpec{
		InputPath:  "/media/abc.mp4",
		OutputPath: "/clips/xyz.mp4",
		Start:      58.5,
		Duration:   93.0,
		CRF:        28,
		Preset:     "ultrafast",
	})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ss 58.500")
	assert.Contains(t, joined, "-t 93.000")
	assert.Contains(t, joined, "crop=w=ih*(9/16):h=ih:x=(iw-ow)/2:y=0")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-preset ultrafast")
	assert.Contains(t, joined, "-crf 28")
	assert.Contains(t, joined, "-c:a aac")
	assert.NotContains(t, joined, "subtitles=")
	assert.Equal(t, "/clips/xyz.mp4", args[len(args)-1])
}

func TestBuildCutArgs_SubtitlesBurnedIn(t *testing.T) {
	args, err := BuildCutArgs(CutSpec{
		InputPath:    "/media/abc.mp4",
		OutputPath:   "/clips/xyz.mp4",
		Start:        0,
		Duration:     60,
		SubtitlePath: "/clips/xyz.srt",
		CRF:          28,
		Preset:       "ultrafast",
	})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "subtitles=/clips/xyz.srt:force_style=")
	assert.Contains(t, joined, "Alignment=2")
	assert.Contains(t, joined, "PrimaryColour=&H00FFFF00")
}

func TestBuildCutArgs_Validation(t *testing.T) {
	_, err := BuildCutArgs(CutSpec{OutputPath: "/c.mp4", Duration: 10})
	assert.Error(t, err)

	_, err = BuildCutArgs(CutSpec{InputPath: "/a.mp4", Duration: 10})
	assert.Error(t, err)

	_, err = BuildCutArgs(CutSpec{InputPath: "/a.mp4", OutputPath: "/c.mp4", Duration: 0})
	assert.Error(t, err)
}

func TestBuildThumbnailArgs(t *testing.T) {
	args, err := BuildThumbnailArgs("/clips/xyz.mp4", "/clips/xyz.jpg")
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ss 1")
	assert.Contains(t, joined, "-vframes 1")
	assert.Equal(t, "/clips/xyz.jpg", args[len(args)-1])
}

func TestBuildSilenceDetectArgs(t *testing.T) {
	args := BuildSilenceDetectArgs("/media/a.m4a", -35, 0.35)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "silencedetect=n=-35dB:d=0.35")
	assert.Contains(t, joined, "-f null")
	assert.Equal(t, "-", args[len(args)-1])
}
