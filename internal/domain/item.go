package domain

import (
	"time"
)

// ItemID is a unique identifier for a media item.
type ItemID string

// String returns the string representation of the ItemID.
func (id ItemID) String() string {
	return string(id)
}

// Platform identifies the social platform a URL belongs to.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformWebsite   Platform = "website"
	PlatformImage     Platform = "image"
)

// ItemType is the kind of content an item holds.
type ItemType string

const (
	ItemTypeVideo   ItemType = "video"
	ItemTypeImage   ItemType = "image"
	ItemTypeWebsite ItemType = "website"
)

// ItemStatus represents the ingestion lifecycle state of an item.
//
// Transitions are monotonic: pending -> processing -> ready | failed.
// A failed item may re-enter processing via an explicit reprocess.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusReady      ItemStatus = "ready"
	StatusFailed     ItemStatus = "failed"
)

// Stats is an engagement snapshot. A tier supplies either the full
// snapshot it has or none at all.
type Stats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// Engagement returns likes+comments+shares.
func (s Stats) Engagement() int64 {
	return s.Likes + s.Comments + s.Shares
}

// Segment is a time-aligned slice of a transcript.
type Segment struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Transcript holds the full text of a video plus time-aligned segments.
// An empty transcript (no text, no segments) means "no transcript
// available" and is not an error.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// IsEmpty reports whether the transcript carries no usable text.
func (t *Transcript) IsEmpty() bool {
	return t == nil || (t.Text == "" && len(t.Segments) == 0)
}

// Analysis is the hook/virality scoring produced by the enrichment job.
type Analysis struct {
	HookScore     int      `json:"hook_score"`
	HookType      string   `json:"hook_type"`
	ContentThemes []string `json:"content_themes"`
}

// Rescript is an AI-generated adaptation of an item's script for a
// different brand voice.
type Rescript struct {
	AdaptedScript    string   `json:"adapted_script"`
	ShotList         []string `json:"shot_list"`
	HookAlternatives []string `json:"hook_alternatives"`
	Hashtags         []string `json:"hashtags"`
	PostingStrategy  string   `json:"posting_strategy"`
}

// BrandVoice configures the rescript enrichment job.
type BrandVoice struct {
	ClientID       string `json:"client_id,omitempty"`
	Tone           string `json:"brand_voice,omitempty"`
	Product        string `json:"product,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
}

// MediaItem is the canonical unit produced by ingestion.
//
// Platform and ItemType are set exactly once by the classifier and never
// mutated. Stats, Transcript, Analysis and Rescript are each independently
// optional; re-running an enrichment replaces its field wholesale.
type MediaItem struct {
	ID        ItemID
	BoardID   string
	SourceURL string
	Platform  Platform
	ItemType  ItemType
	Status    ItemStatus

	Title           string
	ThumbnailURL    string
	AuthorName      string
	AuthorHandle    string
	DurationSeconds int
	MusicLabel      string

	// MediaURL is the direct playable media URL resolved by richer
	// tiers, used by the transcript extractor to fetch the audio track.
	MediaURL string

	// CaptionURL points at platform-native captions when a tier
	// discovered any. Captions beat speech-to-text when present.
	CaptionURL string

	Stats      *Stats
	Transcript *Transcript
	Analysis   *Analysis
	Rescript   *Rescript

	ErrorMessage  string
	FailureReason FailureReason

	// Presentation-layer fields, passed through unchanged.
	PositionX float64
	PositionY float64
	Width     float64

	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// HasMetadata reports whether extraction produced anything displayable.
// An item goes ready only when at least title or thumbnail is populated.
func (m *MediaItem) HasMetadata() bool {
	return m.Title != "" || m.ThumbnailURL != ""
}

// IsVideo reports whether the item holds video content.
func (m *MediaItem) IsVideo() bool {
	return m.ItemType == ItemTypeVideo
}

// Terminal reports whether the item is in a terminal lifecycle state.
func (m *MediaItem) Terminal() bool {
	return m.Status == StatusReady || m.Status == StatusFailed
}

// ApplyMetadata copies an extraction result's fields onto the item.
// Existing transcript/analysis/rescript artifacts are left untouched so
// a reprocess never discards prior enrichment.
func (m *MediaItem) ApplyMetadata(meta *Metadata) {
	m.Title = meta.Title
	m.ThumbnailURL = meta.ThumbnailURL
	m.AuthorName = meta.AuthorName
	m.AuthorHandle = meta.AuthorHandle
	m.DurationSeconds = meta.DurationSeconds
	m.MusicLabel = meta.MusicLabel
	if meta.MediaURL != "" {
		m.MediaURL = meta.MediaURL
	}
	if meta.CaptionURL != "" {
		m.CaptionURL = meta.CaptionURL
	}
	if meta.Stats != nil {
		stats := *meta.Stats
		m.Stats = &stats
	}
}

// MarkProcessing moves the item into the processing state.
func (m *MediaItem) MarkProcessing() {
	m.Status = StatusProcessing
	m.ErrorMessage = ""
	m.FailureReason = ""
}

// MarkReady moves the item into the ready state.
func (m *MediaItem) MarkReady() {
	now := time.Now()
	m.Status = StatusReady
	m.ProcessedAt = &now
	m.ErrorMessage = ""
	m.FailureReason = ""
}

// MarkFailed moves the item into the failed state with a diagnostic.
func (m *MediaItem) MarkFailed(reason FailureReason, msg string) {
	now := time.Now()
	m.Status = StatusFailed
	m.ProcessedAt = &now
	m.FailureReason = reason
	m.ErrorMessage = msg
}
