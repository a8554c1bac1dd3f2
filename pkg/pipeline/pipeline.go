// Package pipeline contains the stage orchestrator: the durable state
// machine that moves a video from NEW to READY through probing,
// candidate generation, two transcription passes, two LLM stages and
// rendering. Each stage is a queue handler; stage payloads carry only
// the video id and every stage reloads state from the store, so
// redelivered jobs are no-ops once the video has moved on.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/media"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/speech"
)

// Queue names. IO carries downloads and probes, AI carries transcription
// and LLM calls, render carries ffmpeg work.
const (
	QueueIO     = "io"
	QueueAI     = "ai"
	QueueRender = "render"
)

// Handler names. Jobs persist these strings; renaming one strands
// enqueued jobs.
const (
	HandlerProbe              = "pipeline.probe"
	HandlerGenerateCandidates = "pipeline.generate_candidates"
	HandlerTranscribePass1    = "pipeline.transcribe_pass1"
	HandlerLLMShortlist       = "pipeline.llm_shortlist"
	HandlerTranscribePass2    = "pipeline.transcribe_pass2"
	HandlerLLMRefine          = "pipeline.llm_refine"
	HandlerRender             = "pipeline.render"
)

// Progress percentages reported per phase.
const (
	progressProbing    = 10
	progressCandidates = 20
	progressPass1      = 35
	progressShortlist  = 50
	progressPass2      = 65
	progressRefine     = 80
	progressRender     = 90
	progressDone       = 100
)

// phaseOrder gives each phase a position in the linear pipeline so
// handlers can detect redelivery of an already-finished stage.
var phaseOrder = map[models.VideoPhase]int{
	models.PhaseNew:                  0,
	models.PhaseProbing:              1,
	models.PhaseGeneratingCandidates: 2,
	models.PhaseTranscribingPass1:    3,
	models.PhaseLLMShortlisting:      4,
	models.PhaseTranscribingPass2:    5,
	models.PhaseLLMRefining:          6,
	models.PhaseRenderingPreview:     7,
	models.PhaseReady:                8,
	models.PhaseError:                9,
}

// StagePayload is the job payload shared by all pipeline stages.
type StagePayload struct {
	VideoID string `json:"video_id"`
}

// VideoStore is the video persistence the orchestrator needs.
type VideoStore interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	SetPhase(ctx context.Context, id string, phase models.VideoPhase, progress int) error
	SetError(ctx context.Context, id string, errMsg string) error
	SetProbeResult(ctx context.Context, id string, duration float64, chapters []models.Chapter, strategy models.Strategy) error
}

// ClipStore is the clip persistence the orchestrator needs.
type ClipStore interface {
	CreateBatch(ctx context.Context, clips []*models.Clip) error
	ListByVideo(ctx context.Context, videoID string, phase models.ClipPhase) ([]*models.Clip, error)
	Save(ctx context.Context, c *models.Clip) error
	Delete(ctx context.Context, id string) error
	DeleteUnpromoted(ctx context.Context, videoID string) (int64, error)
}

// ChannelStore resolves the channel clip length policy.
type ChannelStore interface {
	GetByID(ctx context.Context, id string) (*models.Channel, error)
}

// Enqueuer persists follow-up stage jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, handler string, payload any) (*queue.Job, error)
}

// MediaGateway is the yt-dlp/ffmpeg capability surface the stages use.
type MediaGateway interface {
	Probe(ctx context.Context, url string) (*media.ProbeResult, error)
	DownloadAudio(ctx context.Context, url, youtubeID string) (string, error)
	DetectSilence(ctx context.Context, audioPath string) ([]candidates.Interval, error)
	EnsureVideo(ctx context.Context, url, youtubeID string) (string, error)
	CutClip(ctx context.Context, spec media.CutSpec) (string, error)
	Thumbnail(ctx context.Context, videoPath string) (string, error)
	CleanupSource(youtubeID string)
	ClipsDir() string
}

// SpeechGateway is the two-pass transcription capability.
type SpeechGateway interface {
	TranscribePass1(ctx context.Context, audioPath string) (*speech.Transcript, error)
	TranscribePass2(ctx context.Context, audioPath string) (*speech.Transcript, error)
}

// LLMGateway is the judgment capability: selection, polish, QC, packaging.
type LLMGateway interface {
	Shortlist(ctx context.Context, segments []llm.SegmentInput, maxClips int) ([]llm.ShortlistPick, error)
	Refine(ctx context.Context, clips []llm.RefineInput) (map[string]llm.RefineResult, error)
	ValidateOpening(ctx context.Context, openingText string, durationSec float64) (*llm.OpeningValidation, error)
	FinalQC(ctx context.Context, clipID string, durationSec float64, openingText, endingText string) (*llm.QCResult, error)
	Package(ctx context.Context, clipID string, durationSec float64, transcript string) (*llm.Packaging, error)
}

// Orchestrator wires stores and gateways into the stage handlers.
type Orchestrator struct {
	videos   VideoStore
	clips    ClipStore
	channels ChannelStore
	jobs     Enqueuer
	media    MediaGateway
	speech   SpeechGateway
	llm      LLMGateway
	cand     config.CandidateConfig
	render   config.RenderConfig
	logger   *slog.Logger
}

// NewOrchestrator creates the stage orchestrator.
func NewOrchestrator(
	videos VideoStore,
	clips ClipStore,
	channels ChannelStore,
	jobs Enqueuer,
	mediaGW MediaGateway,
	speechGW SpeechGateway,
	llmGW LLMGateway,
	cand config.CandidateConfig,
	render config.RenderConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		videos:   videos,
		clips:    clips,
		channels: channels,
		jobs:     jobs,
		media:    mediaGW,
		speech:   speechGW,
		llm:      llmGW,
		cand:     cand,
		render:   render,
		logger:   logger.With("component", "pipeline"),
	}
}

// RegisterHandlers binds every stage handler by its stable name.
func (o *Orchestrator) RegisterHandlers(reg *queue.Registry) {
	reg.MustRegister(HandlerProbe, o.handleProbe)
	reg.MustRegister(HandlerGenerateCandidates, o.handleGenerateCandidates)
	reg.MustRegister(HandlerTranscribePass1, o.handleTranscribePass1)
	reg.MustRegister(HandlerLLMShortlist, o.handleLLMShortlist)
	reg.MustRegister(HandlerTranscribePass2, o.handleTranscribePass2)
	reg.MustRegister(HandlerLLMRefine, o.handleLLMRefine)
	reg.MustRegister(HandlerRender, o.handleRender)
}

// EnqueueProbe starts the pipeline for a newly created video.
func (o *Orchestrator) EnqueueProbe(ctx context.Context, videoID string) error {
	_, err := o.jobs.Enqueue(ctx, QueueIO, HandlerProbe, StagePayload{VideoID: videoID})
	return err
}

// HandlePermanentFailure is the queue's permanent-failure hook: a stage
// job out of attempts moves its video to ERROR.
func (o *Orchestrator) HandlePermanentFailure(ctx context.Context, job *queue.Job, execErr error) {
	if !strings.HasPrefix(job.Handler, "pipeline.") {
		return
	}
	var p StagePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.VideoID == "" {
		return
	}
	o.logger.Error("Stage exhausted attempts, failing video",
		"video_id", p.VideoID, "handler", job.Handler, "error", execErr)
	if err := o.videos.SetError(ctx, p.VideoID, execErr.Error()); err != nil {
		o.logger.Error("Failed to record video error", "video_id", p.VideoID, "error", err)
	}
}

// beginStage loads the video and moves it into the stage's phase.
// Returns (nil, nil) when the stage should be skipped: the video is
// terminal or has already passed this stage (stale redelivery).
func (o *Orchestrator) beginStage(ctx context.Context, videoID string, phase models.VideoPhase, progress int) (*models.Video, error) {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Phase.IsTerminal() || phaseOrder[video.Phase] > phaseOrder[phase] {
		o.logger.Info("Skipping stage for video past this phase",
			"video_id", videoID, "video_phase", video.Phase, "stage_phase", phase)
		return nil, nil
	}
	if err := o.videos.SetPhase(ctx, videoID, phase, progress); err != nil {
		return nil, err
	}
	video.Phase = phase
	video.Progress = progress
	return video, nil
}

// finish moves the video to READY.
func (o *Orchestrator) finish(ctx context.Context, videoID string) error {
	if err := o.videos.SetPhase(ctx, videoID, models.PhaseReady, progressDone); err != nil {
		return fmt.Errorf("failed to finish video: %w", err)
	}
	o.logger.Info("Video pipeline complete", "video_id", videoID)
	return nil
}

func decodePayload(payload json.RawMessage) (StagePayload, error) {
	var p StagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("invalid stage payload: %w", err)
	}
	if p.VideoID == "" {
		return p, fmt.Errorf("stage payload missing video_id")
	}
	return p, nil
}
