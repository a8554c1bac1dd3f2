package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/media"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/speech"
)

// In-memory stand-ins for the orchestrator's dependencies.

type fakeVideos struct {
	mu     sync.Mutex
	videos map[string]*models.Video
}

func newFakeVideos(videos ...*models.Video) *fakeVideos {
	f := &fakeVideos{videos: make(map[string]*models.Video)}
	for _, v := range videos {
		f.videos[v.ID] = v
	}
	return f
}

func (f *fakeVideos) GetByID(_ context.Context, id string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s not found", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVideos) SetPhase(_ context.Context, id string, phase models.VideoPhase, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	v.Phase = phase
	v.Progress = progress
	return nil
}

func (f *fakeVideos) SetError(_ context.Context, id string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	v.Phase = models.PhaseError
	v.Error = errMsg
	return nil
}

func (f *fakeVideos) SetProbeResult(_ context.Context, id string, duration float64, chapters []models.Chapter, strategy models.Strategy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	v.Duration = duration
	v.Chapters = chapters
	v.Strategy = strategy
	return nil
}

func (f *fakeVideos) get(id string) *models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videos[id]
}

type fakeClips struct {
	mu    sync.Mutex
	clips map[string]*models.Clip
}

func newFakeClips(clips ...*models.Clip) *fakeClips {
	f := &fakeClips{clips: make(map[string]*models.Clip)}
	for _, c := range clips {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		f.clips[c.ID] = c
	}
	return f
}

func (f *fakeClips) CreateBatch(_ context.Context, clips []*models.Clip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range clips {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.Phase == "" {
			c.Phase = models.ClipCandidate
		}
		copied := *c
		f.clips[c.ID] = &copied
	}
	return nil
}

func (f *fakeClips) ListByVideo(_ context.Context, videoID string, phase models.ClipPhase) ([]*models.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Clip
	for _, c := range f.clips {
		if c.VideoID != videoID {
			continue
		}
		if phase != "" && c.Phase != phase {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (f *fakeClips) Save(_ context.Context, c *models.Clip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clips[c.ID]; !ok {
		return fmt.Errorf("clip %s not found", c.ID)
	}
	copied := *c
	f.clips[c.ID] = &copied
	return nil
}

func (f *fakeClips) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clips[id]; !ok {
		return fmt.Errorf("clip %s not found", id)
	}
	delete(f.clips, id)
	return nil
}

func (f *fakeClips) DeleteUnpromoted(_ context.Context, videoID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, c := range f.clips {
		if c.VideoID == videoID && c.Phase == models.ClipCandidate {
			delete(f.clips, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeClips) get(id string) *models.Clip {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clips[id]
}

func (f *fakeClips) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clips)
}

type fakeChannels struct {
	channels map[string]*models.Channel
}

func (f *fakeChannels) GetByID(_ context.Context, id string) (*models.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s not found", id)
	}
	return ch, nil
}

type enqueuedJob struct {
	Queue   string
	Handler string
	Payload any
}

type fakeJobs struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
}

func (f *fakeJobs) Enqueue(_ context.Context, queueName, handler string, payload any) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, enqueuedJob{Queue: queueName, Handler: handler, Payload: payload})
	return &queue.Job{ID: uuid.New().String(), Queue: queueName, Handler: handler}, nil
}

func (f *fakeJobs) handlers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.enqueued))
	for i, j := range f.enqueued {
		out[i] = j.Handler
	}
	return out
}

type fakeMedia struct {
	probeResult *media.ProbeResult
	probeErr    error
	audioPath   string
	audioErr    error
	silences    []candidates.Interval
	silenceErr  error
	sourcePath  string
	sourceErr   error
	cutErr      error
	clipsDir    string

	mu       sync.Mutex
	cutSpecs []media.CutSpec
	cleaned  []string
}

func (f *fakeMedia) Probe(_ context.Context, _ string) (*media.ProbeResult, error) {
	return f.probeResult, f.probeErr
}

func (f *fakeMedia) DownloadAudio(_ context.Context, _, _ string) (string, error) {
	return f.audioPath, f.audioErr
}

func (f *fakeMedia) DetectSilence(_ context.Context, _ string) ([]candidates.Interval, error) {
	return f.silences, f.silenceErr
}

func (f *fakeMedia) EnsureVideo(_ context.Context, _, _ string) (string, error) {
	return f.sourcePath, f.sourceErr
}

func (f *fakeMedia) CutClip(_ context.Context, spec media.CutSpec) (string, error) {
	if f.cutErr != nil {
		return "", f.cutErr
	}
	f.mu.Lock()
	f.cutSpecs = append(f.cutSpecs, spec)
	f.mu.Unlock()
	return spec.OutputPath, nil
}

func (f *fakeMedia) Thumbnail(_ context.Context, videoPath string) (string, error) {
	return videoPath + ".jpg", nil
}

func (f *fakeMedia) CleanupSource(youtubeID string) {
	f.mu.Lock()
	f.cleaned = append(f.cleaned, youtubeID)
	f.mu.Unlock()
}

func (f *fakeMedia) ClipsDir() string { return f.clipsDir }

type fakeSpeech struct {
	pass1 *speech.Transcript
	pass2 *speech.Transcript
	err   error
}

func (f *fakeSpeech) TranscribePass1(_ context.Context, _ string) (*speech.Transcript, error) {
	return f.pass1, f.err
}

func (f *fakeSpeech) TranscribePass2(_ context.Context, _ string) (*speech.Transcript, error) {
	return f.pass2, f.err
}

type fakeLLM struct {
	picks        []llm.ShortlistPick
	shortlistErr error
	refined      map[string]llm.RefineResult
	refineErr    error
	validations  map[string]*llm.OpeningValidation
	qcResults    map[string]*llm.QCResult
	packagings   map[string]*llm.Packaging
}

func (f *fakeLLM) Shortlist(_ context.Context, _ []llm.SegmentInput, _ int) ([]llm.ShortlistPick, error) {
	return f.picks, f.shortlistErr
}

func (f *fakeLLM) Refine(_ context.Context, _ []llm.RefineInput) (map[string]llm.RefineResult, error) {
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	if f.refined == nil {
		return map[string]llm.RefineResult{}, nil
	}
	return f.refined, nil
}

func (f *fakeLLM) ValidateOpening(_ context.Context, openingText string, _ float64) (*llm.OpeningValidation, error) {
	if v, ok := f.validations[openingText]; ok {
		return v, nil
	}
	return &llm.OpeningValidation{Pass: true, OpeningType: "claim"}, nil
}

func (f *fakeLLM) FinalQC(_ context.Context, clipID string, _ float64, _, _ string) (*llm.QCResult, error) {
	if r, ok := f.qcResults[clipID]; ok {
		return r, nil
	}
	return &llm.QCResult{Pass: true, RecutPlan: llm.RecutPlan{Action: llm.RecutActionNone}}, nil
}

func (f *fakeLLM) Package(_ context.Context, clipID string, _ float64, _ string) (*llm.Packaging, error) {
	if p, ok := f.packagings[clipID]; ok {
		return p, nil
	}
	return &llm.Packaging{}, nil
}
