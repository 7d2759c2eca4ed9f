// Package ingest orchestrates the item lifecycle: URL intake, queued
// metadata extraction, transcript resolution and LLM enrichment.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/candidstudio/moodgrab/internal/classify"
	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/enrich"
	"github.com/candidstudio/moodgrab/internal/ratelimit"
	"github.com/candidstudio/moodgrab/internal/repository"
)

// MetadataExtractor resolves a URL through a platform's tier chain.
// ResolveMedia runs the deeper media-capable tiers only, for items whose
// first-pass extraction won on a tier that supplies no media URL.
type MetadataExtractor interface {
	Extract(ctx context.Context, platform domain.Platform, rawURL string) *domain.ExtractionResult
	ResolveMedia(ctx context.Context, platform domain.Platform, rawURL string) *domain.ExtractionResult
}

// TranscriptExtractor resolves a transcript for a video item.
type TranscriptExtractor interface {
	Extract(ctx context.Context, item *domain.MediaItem) (*domain.Transcript, error)
}

// Service orchestrates the ingestion workflow.
type Service struct {
	items       repository.ItemRepository
	jobs        repository.JobRepository
	extractor   MetadataExtractor
	transcriber TranscriptExtractor
	enricher    *enrich.Enricher
	workerCfg   config.WorkerConfig
	logger      *slog.Logger

	// processing guards against concurrent runs for the same item
	// (reprocess while a worker holds it, double-dispatch, etc).
	mu         sync.Mutex
	processing map[domain.ItemID]struct{}
}

// NewService creates the ingestion service.
func NewService(
	items repository.ItemRepository,
	jobs repository.JobRepository,
	extractor MetadataExtractor,
	transcriber TranscriptExtractor,
	enricher *enrich.Enricher,
	workerCfg config.WorkerConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		items:       items,
		jobs:        jobs,
		extractor:   extractor,
		transcriber: transcriber,
		enricher:    enricher,
		workerCfg:   workerCfg,
		logger:      logger,
		processing:  make(map[domain.ItemID]struct{}),
	}
}

func newItemID() domain.ItemID {
	return domain.ItemID("itm_" + uuid.New().String()[:8])
}

func newJobID() domain.JobID {
	return domain.JobID("job_" + uuid.New().String()[:8])
}

// IngestRequest is one URL submitted to a board.
type IngestRequest struct {
	URL       string
	BoardID   string
	PositionX float64
	PositionY float64
	Width     float64
}

// Ingest validates and registers a URL, returning the pending item
// immediately; extraction runs asynchronously on the worker pool.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*domain.MediaItem, error) {
	if strings.TrimSpace(req.BoardID) == "" {
		return nil, domain.ErrMissingBoard
	}

	c, ok := classify.Classify(req.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, req.URL)
	}

	item := &domain.MediaItem{
		ID:        newItemID(),
		BoardID:   req.BoardID,
		SourceURL: req.URL,
		Platform:  c.Platform,
		ItemType:  c.ItemType,
		Status:    domain.StatusPending,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
		Width:     req.Width,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	job := domain.NewJob(newJobID(), item.ID, s.workerCfg.MaxRetries)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("item ingested",
		"item_id", item.ID,
		"board_id", item.BoardID,
		"platform", item.Platform,
		"item_type", item.ItemType)

	return item, nil
}

// BatchResult is the per-URL outcome of a batch ingest.
type BatchResult struct {
	URL   string
	Item  *domain.MediaItem
	Error error
}

// BatchSummary aggregates a batch ingest.
type BatchSummary struct {
	Results  []BatchResult
	Accepted int
	Rejected int
}

// IngestMany registers a batch of URLs with bounded concurrency. A bad
// URL rejects only itself; results keep the input order.
func (s *Service) IngestMany(ctx context.Context, boardID string, urls []string) (*BatchSummary, error) {
	if strings.TrimSpace(boardID) == "" {
		return nil, domain.ErrMissingBoard
	}

	limiter := ratelimit.New(s.workerCfg.BatchConcurrency)
	results := make([]BatchResult, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			err := limiter.Do(ctx, func() error {
				item, err := s.Ingest(ctx, IngestRequest{URL: url, BoardID: boardID})
				results[i] = BatchResult{URL: url, Item: item, Error: err}
				return nil
			})
			if err != nil {
				results[i] = BatchResult{URL: url, Error: err}
			}
		}(i, url)
	}
	wg.Wait()

	summary := &BatchSummary{Results: results}
	for _, r := range results {
		if r.Error != nil {
			summary.Rejected++
		} else {
			summary.Accepted++
		}
	}

	s.logger.Info("batch ingested",
		"board_id", boardID,
		"accepted", summary.Accepted,
		"rejected", summary.Rejected)

	return summary, nil
}

// RecoverUnfinished re-enqueues extraction for items left pending or
// processing by a previous run. The job queue is in-memory, so item
// status is the durable record of outstanding work.
func (s *Service) RecoverUnfinished(ctx context.Context) (int, error) {
	items, err := s.items.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished items: %w", err)
	}

	recovered := 0
	for _, item := range items {
		if item.Status == domain.StatusProcessing {
			item.Status = domain.StatusPending
			if err := s.items.Save(ctx, item); err != nil {
				return recovered, fmt.Errorf("reset item %s: %w", item.ID, err)
			}
		}
		job := domain.NewJob(newJobID(), item.ID, s.workerCfg.MaxRetries)
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			return recovered, fmt.Errorf("enqueue job for %s: %w", item.ID, err)
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("recovered unfinished items", "count", recovered)
	}
	return recovered, nil
}

// Process runs metadata extraction for one item. It is invoked by the
// worker pool and bounded by the job timeout watchdog. finalAttempt
// tells Process whether the job has retries left: a failed item is
// persisted as failed only when no retry will follow, so a poller never
// observes a failed item flip back to processing on its own.
func (s *Service) Process(ctx context.Context, itemID domain.ItemID, finalAttempt bool) error {
	release, err := s.acquire(itemID)
	if err != nil {
		return err
	}
	defer release()

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}

	item.MarkProcessing()
	if err := s.items.Save(ctx, item); err != nil {
		return fmt.Errorf("save processing state: %w", err)
	}

	// The watchdog bounds extraction only; the outcome save below runs
	// on the caller's context so a timed-out job still lands in failed.
	exCtx, cancel := context.WithTimeout(ctx, s.workerCfg.JobTimeout)
	defer cancel()

	result := s.extractor.Extract(exCtx, item.Platform, item.SourceURL)

	if result.OK() {
		item.ApplyMetadata(result.Metadata)
	}

	if item.HasMetadata() {
		item.MarkReady()
		s.logger.Info("item ready",
			"item_id", item.ID,
			"tier", result.Tier)
		if err := s.items.Save(ctx, item); err != nil {
			return fmt.Errorf("save extraction outcome: %w", err)
		}
		return nil
	}

	reason := domain.FailureParseError
	detail := "no tier produced metadata"
	if f := result.LastFailure(); f != nil {
		reason = f.Reason
		detail = f.Detail
	}

	// The item stays in processing while job retries remain; failed is
	// terminal and must not flip back to processing on its own.
	if finalAttempt {
		item.MarkFailed(reason, detail)
		if err := s.items.Save(ctx, item); err != nil {
			return fmt.Errorf("save extraction outcome: %w", err)
		}
	}

	s.logger.Warn("item extraction failed",
		"item_id", item.ID,
		"reason", reason,
		"detail", detail,
		"final_attempt", finalAttempt)

	return domain.NewItemError(item.ID, "extract",
		fmt.Errorf("extraction failed: %s (%s)", detail, reason))
}

// Reprocess re-runs metadata extraction for a finished item: failed
// items get another shot, ready items a metadata refresh. Existing
// transcript/analysis/rescript artifacts survive the re-run.
func (s *Service) Reprocess(ctx context.Context, itemID domain.ItemID) (*domain.MediaItem, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status == domain.StatusProcessing {
		return nil, domain.NewItemError(itemID, "reprocess", domain.ErrItemBusy)
	}
	if item.Status == domain.StatusPending {
		return nil, domain.NewItemError(itemID, "reprocess", domain.ErrNotReprocessable)
	}

	item.Status = domain.StatusPending
	item.ErrorMessage = ""
	item.FailureReason = ""
	if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save pending state: %w", err)
	}

	job := domain.NewJob(newJobID(), item.ID, s.workerCfg.MaxRetries)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("item queued for reprocess", "item_id", item.ID)
	return item, nil
}

// Transcribe resolves and persists a transcript for a ready video item.
// Re-running replaces the transcript wholesale.
func (s *Service) Transcribe(ctx context.Context, itemID domain.ItemID) (*domain.MediaItem, error) {
	release, err := s.acquire(itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == domain.StatusProcessing {
		return nil, domain.NewItemError(itemID, "transcribe", domain.ErrItemBusy)
	}

	s.resolveMedia(ctx, item)

	t, err := s.transcriber.Extract(ctx, item)
	if err != nil {
		return nil, err
	}

	item.Transcript = t
	if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}

	return item, nil
}

// Analyze runs hook analysis for an item, resolving a transcript first
// when the item has none. Analysis failure never changes item status.
func (s *Service) Analyze(ctx context.Context, itemID domain.ItemID) (*domain.MediaItem, error) {
	release, err := s.acquire(itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == domain.StatusProcessing {
		return nil, domain.NewItemError(itemID, "analyze", domain.ErrItemBusy)
	}

	if err := s.ensureTranscript(ctx, item); err != nil {
		return nil, err
	}

	analysis, err := s.enricher.AnalyzeHooks(ctx, item)
	if err != nil {
		return nil, err
	}

	item.Analysis = analysis
	if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	return item, nil
}

// RescriptJob adapts the item's script to a brand voice, resolving a
// transcript first when the item has none.
func (s *Service) RescriptJob(ctx context.Context, itemID domain.ItemID, voice domain.BrandVoice) (*domain.MediaItem, error) {
	release, err := s.acquire(itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == domain.StatusProcessing {
		return nil, domain.NewItemError(itemID, "rescript", domain.ErrItemBusy)
	}

	if err := s.ensureTranscript(ctx, item); err != nil {
		return nil, err
	}

	rescript, err := s.enricher.Rescript(ctx, item, voice)
	if err != nil {
		return nil, err
	}

	item.Rescript = rescript
	if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save rescript: %w", err)
	}

	return item, nil
}

// ensureTranscript resolves a transcript when the item has none yet.
// Enrichment jobs need one, so resolution failure propagates to the
// caller instead of silently degrading the job's input.
func (s *Service) ensureTranscript(ctx context.Context, item *domain.MediaItem) error {
	if !item.Transcript.IsEmpty() || !item.IsVideo() {
		return nil
	}

	s.resolveMedia(ctx, item)

	t, err := s.transcriber.Extract(ctx, item)
	if err != nil {
		return err
	}
	item.Transcript = t
	if err := s.items.Save(ctx, item); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// resolveMedia fills in the item's media and caption URLs through the
// deeper tiers when the first-pass extraction supplied neither. The
// cheap tiers never carry a direct media URL, so without this step
// transcription would dead-end for most items. Resolution failure is
// not fatal here: the transcript extractor reports the missing media
// URL with full context.
func (s *Service) resolveMedia(ctx context.Context, item *domain.MediaItem) {
	if !item.IsVideo() || item.MediaURL != "" || item.CaptionURL != "" {
		return
	}

	result := s.extractor.ResolveMedia(ctx, item.Platform, item.SourceURL)
	if !result.OK() {
		s.logger.Warn("media resolution failed",
			"item_id", item.ID,
			"failures", len(result.Failures))
		return
	}

	meta := result.Metadata
	item.MediaURL = meta.MediaURL
	item.CaptionURL = meta.CaptionURL
	if item.DurationSeconds == 0 {
		item.DurationSeconds = meta.DurationSeconds
	}

	if err := s.items.Save(ctx, item); err != nil {
		s.logger.Warn("failed to persist resolved media", "item_id", item.ID, "error", err)
		return
	}

	s.logger.Info("media resolved",
		"item_id", item.ID,
		"tier", result.Tier,
		"has_media", item.MediaURL != "",
		"has_captions", item.CaptionURL != "")
}

// Get retrieves an item by ID.
func (s *Service) Get(ctx context.Context, itemID domain.ItemID) (*domain.MediaItem, error) {
	return s.items.Get(ctx, itemID)
}

// List returns a board's items, newest first.
func (s *Service) List(ctx context.Context, boardID string, status *domain.ItemStatus, limit, offset int) ([]*domain.MediaItem, int, error) {
	items, err := s.items.List(ctx, boardID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.items.Count(ctx, boardID, status)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, itemID domain.ItemID) error {
	return s.items.Delete(ctx, itemID)
}

// QueueStats reports job queue statistics.
func (s *Service) QueueStats(ctx context.Context) (*repository.QueueStats, error) {
	return s.jobs.Stats(ctx)
}

// acquire claims the per-item processing slot.
func (s *Service) acquire(itemID domain.ItemID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.processing[itemID]; busy {
		return nil, domain.NewItemError(itemID, "acquire", domain.ErrItemBusy)
	}
	s.processing[itemID] = struct{}{}

	return func() {
		s.mu.Lock()
		delete(s.processing, itemID)
		s.mu.Unlock()
	}, nil
}
