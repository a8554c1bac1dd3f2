package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/media"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/speech"
)

type testEnv struct {
	orch     *Orchestrator
	videos   *fakeVideos
	clips    *fakeClips
	channels *fakeChannels
	jobs     *fakeJobs
	media    *fakeMedia
	speech   *fakeSpeech
	llm      *fakeLLM
}

func newTestEnv(t *testing.T, video *models.Video, clips ...*models.Clip) *testEnv {
	t.Helper()
	env := &testEnv{
		videos:   newFakeVideos(video),
		clips:    newFakeClips(clips...),
		channels: &fakeChannels{channels: map[string]*models.Channel{}},
		jobs:     &fakeJobs{},
		media:    &fakeMedia{audioPath: "/tmp/a.m4a", sourcePath: "/tmp/src.mp4", clipsDir: t.TempDir()},
		speech:   &fakeSpeech{pass1: &speech.Transcript{}, pass2: &speech.Transcript{}},
		llm:      &fakeLLM{},
	}
	env.orch = NewOrchestrator(
		env.videos, env.clips, env.channels, env.jobs,
		env.media, env.speech, env.llm,
		config.DefaultCandidateConfig(), config.DefaultRenderConfig(),
		slog.Default(),
	)
	return env
}

func stagePayload(t *testing.T, videoID string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(StagePayload{VideoID: videoID})
	require.NoError(t, err)
	return data
}

func testVideo(phase models.VideoPhase) *models.Video {
	return &models.Video{
		ID:             "vid-1",
		Source:         models.SourceManual,
		YoutubeVideoID: "yt123",
		Phase:          phase,
	}
}

func TestHandleProbe(t *testing.T) {
	video := testVideo(models.PhaseNew)
	env := newTestEnv(t, video)
	env.media.probeResult = &media.ProbeResult{
		VideoID:  "yt123",
		Title:    "Episode 12",
		Duration: 1800,
		Chapters: []models.Chapter{{Title: "Intro", Start: 0, End: 120}},
	}

	err := env.orch.handleProbe(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.videos.get(video.ID)
	assert.Equal(t, 1800.0, got.Duration)
	assert.Equal(t, models.StrategyChapter, got.Strategy)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, []string{HandlerGenerateCandidates}, env.jobs.handlers())
}

func TestHandleProbe_SkipsVideoPastPhase(t *testing.T) {
	video := testVideo(models.PhaseLLMShortlisting)
	env := newTestEnv(t, video)

	err := env.orch.handleProbe(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	assert.Empty(t, env.jobs.handlers())
	assert.Equal(t, models.PhaseLLMShortlisting, env.videos.get(video.ID).Phase)
}

func TestHandleProbe_ErrorPropagates(t *testing.T) {
	video := testVideo(models.PhaseNew)
	env := newTestEnv(t, video)
	env.media.probeErr = assert.AnError

	err := env.orch.handleProbe(context.Background(), stagePayload(t, video.ID))
	require.Error(t, err)
	assert.Empty(t, env.jobs.handlers())
}

func TestHandleGenerateCandidates_Chapters(t *testing.T) {
	video := testVideo(models.PhaseProbing)
	video.Duration = 1800
	video.Chapters = []models.Chapter{{Title: "Topic", Start: 0, End: 300}}
	video.Strategy = models.StrategyChapter
	env := newTestEnv(t, video)

	err := env.orch.handleGenerateCandidates(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	clips, _ := env.clips.ListByVideo(context.Background(), video.ID, models.ClipCandidate)
	require.NotEmpty(t, clips)
	for _, c := range clips {
		assert.Equal(t, models.StrategyChapter, c.Strategy)
		assert.GreaterOrEqual(t, c.Duration(), 60.0)
	}
	assert.Equal(t, []string{HandlerTranscribePass1}, env.jobs.handlers())
}

func TestHandleGenerateCandidates_SilenceFallsBackToFixed(t *testing.T) {
	video := testVideo(models.PhaseProbing)
	video.Duration = 600
	video.Strategy = models.StrategySilence
	env := newTestEnv(t, video)
	env.media.silenceErr = assert.AnError

	err := env.orch.handleGenerateCandidates(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	clips, _ := env.clips.ListByVideo(context.Background(), video.ID, models.ClipCandidate)
	require.NotEmpty(t, clips)
	assert.Equal(t, models.StrategyFixedInterval, clips[0].Strategy)
	assert.Equal(t, models.StrategyFixedInterval, env.videos.get(video.ID).Strategy)
}

func TestCandidateParams_PolicyPrecedence(t *testing.T) {
	ch := &models.Channel{ID: "ch-1", ClipMinSeconds: 45, ClipMaxSeconds: 90, TargetCount: 4}

	// Channel policy over the process defaults.
	video := testVideo(models.PhaseNew)
	video.ChannelID = &ch.ID
	env := newTestEnv(t, video)
	env.channels.channels[ch.ID] = ch

	params, err := env.orch.candidateParams(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, 45.0, params.MinSeconds)
	assert.Equal(t, 90.0, params.MaxSeconds)

	// Per-video overrides over the channel policy.
	minSec, maxSec := 30.0, 60.0
	video.ClipMinSeconds = &minSec
	video.ClipMaxSeconds = &maxSec
	params, err = env.orch.candidateParams(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, 30.0, params.MinSeconds)
	assert.Equal(t, 60.0, params.MaxSeconds)
}

func TestCandidateParams_ManualVideoUsesDefaults(t *testing.T) {
	video := testVideo(models.PhaseNew)
	env := newTestEnv(t, video)

	params, err := env.orch.candidateParams(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCandidateConfig().MinSeconds, params.MinSeconds)
	assert.Equal(t, config.DefaultCandidateConfig().MaxSeconds, params.MaxSeconds)
}

func TestHandleTranscribePass1(t *testing.T) {
	video := testVideo(models.PhaseGeneratingCandidates)
	clip := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipCandidate, Start: 10, End: 70}
	env := newTestEnv(t, video, clip)
	env.speech.pass1 = &speech.Transcript{Segments: []speech.Segment{
		{Text: "inside the window", Start: 20, End: 40},
		{Text: "far away", Start: 500, End: 520},
	}}

	err := env.orch.handleTranscribePass1(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	assert.Equal(t, "inside the window", env.clips.get("c1").TranscriptPass1)
	assert.Equal(t, []string{HandlerLLMShortlist}, env.jobs.handlers())
}

func TestHandleLLMShortlist_PromotesAndDeletes(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass1)
	picked := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipCandidate, Start: 10, End: 70, TranscriptPass1: "ternyata most people get investing wrong"}
	skipped := &models.Clip{ID: "c2", VideoID: video.ID, Phase: models.ClipCandidate, Start: 100, End: 160, TranscriptPass1: "greetings and sponsors"}
	env := newTestEnv(t, video, picked, skipped)
	env.llm.picks = []llm.ShortlistPick{{
		ID:         "c1",
		Start:      10,
		End:        70,
		ViralScore: 85,
		HookText:   "Most people get this wrong",
		Caption:    "Investing myths debunked.",
		Keywords:   []string{"investing", "myths"},
	}}

	err := env.orch.handleLLMShortlist(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.clips.get("c1")
	assert.Equal(t, models.ClipShortlisted, got.Phase)
	assert.Equal(t, 85.0, got.LLMScore)
	assert.Greater(t, got.HeuristicScore, 0.0)
	require.NotNil(t, got.Breakdown)

	// Unpromoted candidate removed at the shortlist boundary.
	assert.Nil(t, env.clips.get("c2"))
	assert.Equal(t, []string{HandlerTranscribePass2}, env.jobs.handlers())
}

func TestHandleLLMShortlist_ChannelTargetCountCapsPromotion(t *testing.T) {
	ch := &models.Channel{ID: "ch-1", ClipMinSeconds: 60, ClipMaxSeconds: 120, TargetCount: 1}
	video := testVideo(models.PhaseTranscribingPass1)
	video.ChannelID = &ch.ID
	strong := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipCandidate, Start: 10, End: 70, TranscriptPass1: "why most people get investing completely wrong"}
	weak := &models.Clip{ID: "c2", VideoID: video.ID, Phase: models.ClipCandidate, Start: 100, End: 160, TranscriptPass1: "some more thoughts on the same topic"}
	env := newTestEnv(t, video, strong, weak)
	env.channels.channels[ch.ID] = ch
	env.llm.picks = []llm.ShortlistPick{
		{ID: "c1", Start: 10, End: 70, ViralScore: 90, Keywords: []string{"investing"}},
		{ID: "c2", Start: 100, End: 160, ViralScore: 40, Keywords: []string{"thoughts"}},
	}

	err := env.orch.handleLLMShortlist(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	promoted, _ := env.clips.ListByVideo(context.Background(), video.ID, models.ClipShortlisted)
	require.Len(t, promoted, 1)
	assert.Equal(t, "c1", promoted[0].ID)
	assert.Nil(t, env.clips.get("c2"))
}

func TestHandleLLMShortlist_MaxClipsOverrideCapsPromotion(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass1)
	maxClips := 1
	video.MaxClips = &maxClips
	first := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipCandidate, Start: 10, End: 70, TranscriptPass1: "the single best clip of the episode"}
	second := &models.Clip{ID: "c2", VideoID: video.ID, Phase: models.ClipCandidate, Start: 100, End: 160, TranscriptPass1: "a decent runner up segment"}
	env := newTestEnv(t, video, first, second)
	env.llm.picks = []llm.ShortlistPick{
		{ID: "c1", Start: 10, End: 70, ViralScore: 85, Keywords: []string{"best"}},
		{ID: "c2", Start: 100, End: 160, ViralScore: 50, Keywords: []string{"runner"}},
	}

	err := env.orch.handleLLMShortlist(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	promoted, _ := env.clips.ListByVideo(context.Background(), video.ID, models.ClipShortlisted)
	require.Len(t, promoted, 1)
	assert.Equal(t, "c1", promoted[0].ID)
}

func TestHandleLLMShortlist_NoPicksFinishesVideo(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass1)
	clip := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipCandidate, Start: 10, End: 70}
	env := newTestEnv(t, video, clip)

	err := env.orch.handleLLMShortlist(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseReady, env.videos.get(video.ID).Phase)
	assert.Equal(t, 0, env.clips.count())
	assert.Empty(t, env.jobs.handlers())
}

func TestHandleTranscribePass2(t *testing.T) {
	video := testVideo(models.PhaseLLMShortlisting)
	clip := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipShortlisted, Start: 10, End: 70}
	env := newTestEnv(t, video, clip)
	env.speech.pass2 = &speech.Transcript{Segments: []speech.Segment{
		{Text: "hello world", Start: 10, End: 15, Words: []models.WordTiming{
			{Word: "hello", Start: 11, End: 12},
			{Word: "world", Start: 13, End: 14},
		}},
	}}

	err := env.orch.handleTranscribePass2(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.clips.get("c1")
	assert.Equal(t, "hello world", got.TranscriptPass2)
	require.Len(t, got.Words, 2)
	assert.Equal(t, 1.0, got.Words[0].Start)
	assert.Equal(t, []string{HandlerLLMRefine}, env.jobs.handlers())
}

func TestHandleLLMRefine_FullQualityPass(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass2)
	longTranscript := strings.Repeat("word ", 30)
	keep := &models.Clip{
		ID: "keep", VideoID: video.ID, Phase: models.ClipShortlisted,
		Start: 100, End: 160, TranscriptPass2: longTranscript,
		Words: []models.WordTiming{{Word: "strong", Start: 0.5, End: 1.0}},
	}
	drop := &models.Clip{
		ID: "drop", VideoID: video.ID, Phase: models.ClipShortlisted,
		Start: 200, End: 260, TranscriptPass2: longTranscript,
	}
	env := newTestEnv(t, video, keep, drop)
	env.llm.refined = map[string]llm.RefineResult{
		"keep": {ID: "keep", HookText: "Polished hook", Caption: "Polished caption."},
	}
	env.llm.qcResults = map[string]*llm.QCResult{
		"keep": {Pass: false, RecutPlan: llm.RecutPlan{Action: llm.RecutActionShiftStart, ShiftStartBySec: 2.0}},
		"drop": {Pass: false, RecutPlan: llm.RecutPlan{Action: llm.RecutActionDrop, Notes: "no payoff"}},
	}
	env.llm.packagings = map[string]*llm.Packaging{
		"keep": {KeySentence: "the key line", Title: "Final Title", Caption: "Final caption.", Hashtags: []string{"a", "b", "c", "d", "e"}, Confidence: 88},
	}

	err := env.orch.handleLLMRefine(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.clips.get("keep")
	assert.Equal(t, 102.0, got.Start)
	assert.True(t, got.WasRecut)
	assert.Equal(t, 2.0, got.TimingOffset)
	assert.Equal(t, "Final Title", got.HookText)
	assert.Equal(t, "the key line", got.KeySentence)
	assert.Equal(t, 88.0, got.PackagingConfidence)

	assert.Nil(t, env.clips.get("drop"))
	assert.Equal(t, []string{HandlerRender}, env.jobs.handlers())
}

func TestHandleLLMRefine_WeakOpeningFlagged(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass2)
	clip := &models.Clip{
		ID: "c1", VideoID: video.ID, Phase: models.ClipShortlisted,
		Start: 0, End: 60,
		Words: []models.WordTiming{{Word: "halo", Start: 0.2, End: 0.6}},
	}
	env := newTestEnv(t, video, clip)
	env.llm.validations = map[string]*llm.OpeningValidation{
		"halo": {Pass: false, OpeningType: "weak", Reason: "greeting"},
	}

	err := env.orch.handleLLMRefine(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	assert.Contains(t, env.clips.get("c1").RiskFlags, RiskFlagWeakOpening)
}

func TestHandleRender(t *testing.T) {
	video := testVideo(models.PhaseLLMRefining)
	clip := &models.Clip{
		ID: "c1", VideoID: video.ID, Phase: models.ClipShortlisted,
		Start: 100, End: 160,
		Words: []models.WordTiming{
			{Word: "first", Start: 0.5, End: 1.0},
			{Word: "last", Start: 58.0, End: 59.0},
		},
	}
	env := newTestEnv(t, video, clip)

	err := env.orch.handleRender(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.clips.get("c1")
	assert.Equal(t, models.ClipReady, got.Phase)
	assert.NotEmpty(t, got.PreviewPath)
	assert.NotEmpty(t, got.ThumbnailPath)
	assert.NotEmpty(t, got.SubtitlePath)

	content, readErr := os.ReadFile(got.SubtitlePath)
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "FIRST")

	require.Len(t, env.media.cutSpecs, 1)
	spec := env.media.cutSpecs[0]
	// Snap moved the start to the first word, then padding pulled it back.
	assert.InDelta(t, 99.0, spec.Start, 1e-9)
	assert.Equal(t, filepath.Join(env.media.clipsDir, "c1.mp4"), spec.OutputPath)

	assert.Equal(t, []string{"yt123"}, env.media.cleaned)
	assert.Equal(t, models.PhaseReady, env.videos.get(video.ID).Phase)
}

func TestHandleRender_ClipFailureDoesNotFailVideo(t *testing.T) {
	video := testVideo(models.PhaseLLMRefining)
	clip := &models.Clip{ID: "c1", VideoID: video.ID, Phase: models.ClipShortlisted, Start: 100, End: 160}
	env := newTestEnv(t, video, clip)
	env.media.cutErr = assert.AnError

	err := env.orch.handleRender(context.Background(), stagePayload(t, video.ID))
	require.NoError(t, err)

	got := env.clips.get("c1")
	assert.Equal(t, models.ClipError, got.Phase)
	assert.NotEmpty(t, got.Error)
	assert.Equal(t, models.PhaseReady, env.videos.get(video.ID).Phase)
}

func TestHandlePermanentFailure(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass1)
	env := newTestEnv(t, video)

	env.orch.HandlePermanentFailure(context.Background(), &queue.Job{
		Handler: HandlerTranscribePass1,
		Payload: stagePayload(t, video.ID),
	}, assert.AnError)

	got := env.videos.get(video.ID)
	assert.Equal(t, models.PhaseError, got.Phase)
	assert.NotEmpty(t, got.Error)
}

func TestHandlePermanentFailure_IgnoresOtherHandlers(t *testing.T) {
	video := testVideo(models.PhaseTranscribingPass1)
	env := newTestEnv(t, video)

	env.orch.HandlePermanentFailure(context.Background(), &queue.Job{
		Handler: "publish.upload",
		Payload: stagePayload(t, video.ID),
	}, assert.AnError)

	assert.Equal(t, models.PhaseTranscribingPass1, env.videos.get(video.ID).Phase)
}

func TestRegisterHandlers(t *testing.T) {
	env := newTestEnv(t, testVideo(models.PhaseNew))
	reg := queue.NewRegistry()
	env.orch.RegisterHandlers(reg)

	for _, name := range []string{
		HandlerProbe, HandlerGenerateCandidates, HandlerTranscribePass1,
		HandlerLLMShortlist, HandlerTranscribePass2, HandlerLLMRefine, HandlerRender,
	} {
		_, err := reg.Lookup(name)
		assert.NoError(t, err, name)
	}
}
