package domain

// FailureReason tags why an extraction tier (or a whole chain) failed.
// The tag survives to the API response so the UI can distinguish
// "nothing found, give up" from "rate limited, retry later".
type FailureReason string

const (
	FailureNotFound    FailureReason = "not_found"
	FailureRateLimited FailureReason = "rate_limited"
	FailureParseError  FailureReason = "parse_error"
	FailureTimeout     FailureReason = "timeout"
	FailureUnsupported FailureReason = "unsupported"

	// FailureTooLong marks media over the transcription cost ceilings.
	FailureTooLong FailureReason = "too_long"
)

// Retryable reports whether the failure is transient.
func (r FailureReason) Retryable() bool {
	return r == FailureRateLimited || r == FailureTimeout
}

// Metadata is the normalized record a tier adapter produces from its
// upstream JSON shape. Raw upstream payloads never travel past the tier
// boundary.
type Metadata struct {
	Title           string
	ThumbnailURL    string
	AuthorName      string
	AuthorHandle    string
	DurationSeconds int
	MusicLabel      string

	// MediaURL is a direct media URL, supplied by richer tiers only.
	MediaURL string

	// CaptionURL points at platform-native captions when the tier
	// discovered any.
	CaptionURL string

	// Stats is all-or-nothing per tier.
	Stats *Stats
}

// TierFailure records one failed tier attempt for diagnostics.
type TierFailure struct {
	Tier   string
	Reason FailureReason
	Detail string
}

// ExtractionResult is the outcome of running a platform's tier chain:
// either a metadata record from the first tier that succeeded, or the
// accumulated failures of every tier.
type ExtractionResult struct {
	Metadata *Metadata
	Tier     string
	Failures []TierFailure
}

// OK reports whether any tier produced metadata.
func (r *ExtractionResult) OK() bool {
	return r.Metadata != nil
}

// LastFailure returns the most recent tier failure, or nil.
func (r *ExtractionResult) LastFailure() *TierFailure {
	if len(r.Failures) == 0 {
		return nil
	}
	return &r.Failures[len(r.Failures)-1]
}
