package models

// VideoPhase tracks a video through the segment-first pipeline.
// Transitions are linear; any stage failure moves the video to PhaseError.
type VideoPhase string

const (
	PhaseNew                  VideoPhase = "NEW"
	PhaseProbing              VideoPhase = "PROBING"
	PhaseGeneratingCandidates VideoPhase = "GENERATING_CANDIDATES"
	PhaseTranscribingPass1    VideoPhase = "TRANSCRIBING_PASS1"
	PhaseLLMShortlisting      VideoPhase = "LLM_SHORTLISTING"
	PhaseTranscribingPass2    VideoPhase = "TRANSCRIBING_PASS2"
	PhaseLLMRefining          VideoPhase = "LLM_REFINING"
	PhaseRenderingPreview     VideoPhase = "RENDERING_PREVIEW"
	PhaseReady                VideoPhase = "READY"
	PhaseError                VideoPhase = "ERROR"
)

// IsValid checks if the video phase is a known value
func (p VideoPhase) IsValid() bool {
	switch p {
	case PhaseNew, PhaseProbing, PhaseGeneratingCandidates, PhaseTranscribingPass1,
		PhaseLLMShortlisting, PhaseTranscribingPass2, PhaseLLMRefining,
		PhaseRenderingPreview, PhaseReady, PhaseError:
		return true
	}
	return false
}

// IsTerminal reports whether no further stage will run for this video
func (p VideoPhase) IsTerminal() bool {
	return p == PhaseReady || p == PhaseError
}

// VideoSource distinguishes feed-discovered videos from operator submissions
type VideoSource string

const (
	SourceFeed   VideoSource = "FEED"
	SourceManual VideoSource = "MANUAL"
)

// IsValid checks if the video source is a known value
func (s VideoSource) IsValid() bool {
	return s == SourceFeed || s == SourceManual
}

// ClipPhase tracks a clip's promotion through the pipeline
type ClipPhase string

const (
	ClipCandidate   ClipPhase = "CANDIDATE"
	ClipShortlisted ClipPhase = "SHORTLISTED"
	ClipReady       ClipPhase = "READY"
	ClipError       ClipPhase = "ERROR"
)

// IsValid checks if the clip phase is a known value
func (p ClipPhase) IsValid() bool {
	switch p {
	case ClipCandidate, ClipShortlisted, ClipReady, ClipError:
		return true
	}
	return false
}

// Strategy names the candidate window generation approach chosen at probe time
type Strategy string

const (
	StrategyChapter       Strategy = "CHAPTER"
	StrategySilence       Strategy = "SILENCE"
	StrategyFixedInterval Strategy = "FIXED_INTERVAL"
)

// IsValid checks if the strategy is a known value
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyChapter, StrategySilence, StrategyFixedInterval:
		return true
	}
	return false
}

// PostMode controls how an approved clip is published
type PostMode string

const (
	PostModeDraft  PostMode = "DRAFT"
	PostModeDirect PostMode = "DIRECT"
)

// IsValid checks if the post mode is a known value
func (m PostMode) IsValid() bool {
	return m == PostModeDraft || m == PostModeDirect
}

// PostStatus tracks an upload job for an approved clip
type PostStatus string

const (
	PostQueued     PostStatus = "QUEUED"
	PostUploading  PostStatus = "UPLOADING"
	PostProcessing PostStatus = "PROCESSING"
	PostPosted     PostStatus = "POSTED"
	PostFailed     PostStatus = "FAILED"
)

// IsValid checks if the post status is a known value
func (s PostStatus) IsValid() bool {
	switch s {
	case PostQueued, PostUploading, PostProcessing, PostPosted, PostFailed:
		return true
	}
	return false
}
