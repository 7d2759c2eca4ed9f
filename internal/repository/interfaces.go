package repository

import (
	"context"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// ItemRepository handles media item persistence.
type ItemRepository interface {
	// Save inserts or fully replaces an item.
	Save(ctx context.Context, item *domain.MediaItem) error

	// Get retrieves an item by ID.
	Get(ctx context.Context, id domain.ItemID) (*domain.MediaItem, error)

	// List returns a board's items, newest first, optionally filtered
	// by status.
	List(ctx context.Context, boardID string, status *domain.ItemStatus, limit, offset int) ([]*domain.MediaItem, error)

	// Count returns the number of items on a board.
	Count(ctx context.Context, boardID string, status *domain.ItemStatus) (int, error)

	// ListUnfinished returns items across all boards still awaiting
	// extraction (pending or processing), oldest first.
	ListUnfinished(ctx context.Context) ([]*domain.MediaItem, error)

	// Delete removes an item.
	Delete(ctx context.Context, id domain.ItemID) error

	// Close releases the underlying store.
	Close() error
}

// JobRepository manages the ingestion job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue retrieves the next pending job (FIFO).
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// GetByItemID finds the job associated with an item.
	GetByItemID(ctx context.Context, itemID domain.ItemID) (*domain.Job, error)

	// ListPending returns all pending/retrying jobs.
	ListPending(ctx context.Context) ([]*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
}
