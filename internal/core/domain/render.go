package domain

import "time"

// ViewType is the requested output kind (spec §4.6). Aliases a/s/t are
// resolved by the handler before this type is ever constructed.
type ViewType int

const (
	ViewAvatar ViewType = iota
	ViewSprite
	ViewThumbnail
)

func (v ViewType) String() string {
	switch v {
	case ViewAvatar:
		return "avatar"
	case ViewSprite:
		return "sprite"
	case ViewThumbnail:
		return "thumbnail"
	default:
		return "unknown"
	}
}

// Priority orders queued jobs: thumbnail > avatar > sprite (spec §4.5).
// Lower numeric value is higher priority.
type Priority int

const (
	PriorityThumbnail Priority = iota
	PriorityAvatar
	PrioritySprite
)

// PriorityFor maps a requested view to its queue priority.
func PriorityFor(v ViewType) Priority {
	switch v {
	case ViewThumbnail:
		return PriorityThumbnail
	case ViewAvatar:
		return PriorityAvatar
	default:
		return PrioritySprite
	}
}

// JobState is a render job's position in the state machine of spec §4.5.
type JobState int

const (
	JobQueued JobState = iota
	JobRunning
	JobRetrying
	JobSucceeded
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobRetrying:
		return "retrying"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the three terminal states.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// RenderKey is the single-flight dedup key: (username, fingerprint).
type RenderKey struct {
	Username    string
	Fingerprint uint32
}

// SpriteSheet is the six-direction 2550x850 rendered output (spec §3).
const (
	SpriteSheetWidth  = 2550
	SpriteSheetHeight = 850
	FrameWidth        = 425
	FrameHeight       = 850
	FrameCount        = 6

	AvatarWidth  = FrameWidth
	AvatarHeight = FrameHeight

	ThumbnailWidth  = 218
	ThumbnailHeight = 218
	ThumbnailOffsetX = 103
	ThumbnailOffsetY = 42
)

// Direction indexes the six frames of a sprite sheet. The mapping is fixed
// and documented (spec §9 Open Question 2): index 0..5 corresponds to
// front, side-left, three-quarter-left, back, side-right, three-quarter-right.
type Direction int

const (
	DirectionFront Direction = iota
	DirectionSideLeft
	DirectionThreeQuarterLeft
	DirectionBack
	DirectionSideRight
	DirectionThreeQuarterRight
)

func (d Direction) String() string {
	switch d {
	case DirectionFront:
		return "front"
	case DirectionSideLeft:
		return "side-left"
	case DirectionThreeQuarterLeft:
		return "three-quarter-left"
	case DirectionBack:
		return "back"
	case DirectionSideRight:
		return "side-right"
	case DirectionThreeQuarterRight:
		return "three-quarter-right"
	default:
		return "unknown"
	}
}

// RenderOutput is the immutable result of a successful composite: the raw
// sprite sheet plus its two WebP-encoded derived crops. Compositing is
// pure (spec §4.3 Atomicity) — all three are produced before any side
// effect runs.
type RenderOutput struct {
	SpriteSheetPNG []byte // canonical raster form of the full sheet, for re-derivation/debugging
	AvatarWebP     []byte
	ClothingWebP   []byte // sprite sheet, WebP-encoded, stored as "user-clothing"
	ThumbnailWebP  []byte
	Fingerprint    uint32
	RenderedAt     time.Time
}

// RenderJob captures a single render request tracked by the Render
// Coordinator (C5).
type RenderJob struct {
	ID          string
	Username    string
	Fingerprint uint32
	View        ViewType
	Priority    Priority
	State       JobState
	Attempt     int
	EnqueuedAt  time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Err         error
}
