package domain

import "errors"

// Domain errors.
var (
	// ErrItemNotFound is returned when a media item cannot be found.
	ErrItemNotFound = errors.New("item not found")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrInvalidURL is returned when the input cannot be parsed as a URL.
	// This is a validation failure; no item is created for it.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrMissingBoard is returned when an ingest request has no board.
	ErrMissingBoard = errors.New("board ID is required")

	// ErrItemBusy is returned when a pipeline run is requested while a
	// previous run for the same item is still in flight.
	ErrItemBusy = errors.New("item is already being processed")

	// ErrNotReprocessable is returned when reprocess is requested on an
	// item whose first extraction has not finished yet. Both terminal
	// states qualify: failed items get another shot, ready items a
	// metadata refresh.
	ErrNotReprocessable = errors.New("only finished items can be reprocessed")

	// ErrNotVideo is returned when a video-only operation (transcribe,
	// analyze, rescript) is requested on a non-video item.
	ErrNotVideo = errors.New("operation requires a video item")

	// ErrTranscriptEmpty is returned by enrichment jobs when no usable
	// transcript could be obtained for the item.
	ErrTranscriptEmpty = errors.New("no transcript available for item")

	// ErrAudioTooLong is returned when a video exceeds the configured
	// speech-to-text size or duration ceiling.
	ErrAudioTooLong = errors.New("audio exceeds transcription ceiling")

	// ErrNoMediaURL is returned when no direct media URL could be
	// resolved for audio download.
	ErrNoMediaURL = errors.New("no direct media URL available")

	// ErrSpeechToTextUnavailable is returned when the speech-to-text
	// service is not configured.
	ErrSpeechToTextUnavailable = errors.New("speech-to-text not configured")

	// ErrRateLimited is returned when rate limited by external services.
	ErrRateLimited = errors.New("rate limited")

	// ErrEnrichmentFailed is returned when an LLM enrichment produced
	// unusable output. The item's lifecycle status is unaffected.
	ErrEnrichmentFailed = errors.New("enrichment failed")

	// ErrProfileUnsupported is returned when profile extraction is
	// requested for a platform without a listing endpoint.
	ErrProfileUnsupported = errors.New("profile extraction not supported for platform")
)

// ItemError wraps an error with item context.
type ItemError struct {
	ItemID ItemID
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	if e.ItemID != "" {
		return e.Op + " [" + e.ItemID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// NewItemError creates a new ItemError.
func NewItemError(itemID ItemID, op string, err error) *ItemError {
	return &ItemError{
		ItemID: itemID,
		Op:     op,
		Err:    err,
	}
}
