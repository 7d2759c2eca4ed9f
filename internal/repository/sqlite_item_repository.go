package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteItemRepository implements ItemRepository backed by SQLite.
//
// Structured fields (stats, transcript, analysis, rescript) are stored
// as JSON columns: they are opaque blobs to every query we run, and a
// schema migration per enrichment shape would buy nothing.
type SQLiteItemRepository struct {
	db *sql.DB
}

// NewSQLiteItemRepository opens (creating if needed) the item database.
func NewSQLiteItemRepository(path string) (*SQLiteItemRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer; SQLite serializes writes anyway and this avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			source_url TEXT NOT NULL,
			platform TEXT NOT NULL,
			item_type TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			author_name TEXT NOT NULL DEFAULT '',
			author_handle TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			music_label TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			caption_url TEXT NOT NULL DEFAULT '',
			stats TEXT,
			transcript TEXT,
			analysis TEXT,
			rescript TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			position_x REAL NOT NULL DEFAULT 0,
			position_y REAL NOT NULL DEFAULT 0,
			width REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			processed_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_items_board ON items(board_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	return &SQLiteItemRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteItemRepository) Close() error {
	return r.db.Close()
}

// Save inserts or fully replaces an item.
func (r *SQLiteItemRepository) Save(ctx context.Context, item *domain.MediaItem) error {
	stats, err := marshalNullable(item.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	transcript, err := marshalNullable(item.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	analysis, err := marshalNullable(item.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	rescript, err := marshalNullable(item.Rescript)
	if err != nil {
		return fmt.Errorf("marshal rescript: %w", err)
	}

	var processedAt sql.NullTime
	if item.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *item.ProcessedAt, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO items (
			id, board_id, source_url, platform, item_type, status,
			title, thumbnail_url, author_name, author_handle,
			duration_seconds, music_label, media_url, caption_url,
			stats, transcript, analysis, rescript,
			error_message, failure_reason,
			position_x, position_y, width,
			created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			board_id = excluded.board_id,
			source_url = excluded.source_url,
			platform = excluded.platform,
			item_type = excluded.item_type,
			status = excluded.status,
			title = excluded.title,
			thumbnail_url = excluded.thumbnail_url,
			author_name = excluded.author_name,
			author_handle = excluded.author_handle,
			duration_seconds = excluded.duration_seconds,
			music_label = excluded.music_label,
			media_url = excluded.media_url,
			caption_url = excluded.caption_url,
			stats = excluded.stats,
			transcript = excluded.transcript,
			analysis = excluded.analysis,
			rescript = excluded.rescript,
			error_message = excluded.error_message,
			failure_reason = excluded.failure_reason,
			position_x = excluded.position_x,
			position_y = excluded.position_y,
			width = excluded.width,
			created_at = excluded.created_at,
			processed_at = excluded.processed_at
	`,
		item.ID.String(), item.BoardID, item.SourceURL, string(item.Platform),
		string(item.ItemType), string(item.Status),
		item.Title, item.ThumbnailURL, item.AuthorName, item.AuthorHandle,
		item.DurationSeconds, item.MusicLabel, item.MediaURL, item.CaptionURL,
		stats, transcript, analysis, rescript,
		item.ErrorMessage, string(item.FailureReason),
		item.PositionX, item.PositionY, item.Width,
		item.CreatedAt, processedAt,
	)
	if err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

const itemColumns = `
	id, board_id, source_url, platform, item_type, status,
	title, thumbnail_url, author_name, author_handle,
	duration_seconds, music_label, media_url, caption_url,
	stats, transcript, analysis, rescript,
	error_message, failure_reason,
	position_x, position_y, width,
	created_at, processed_at`

// Get retrieves an item by ID.
func (r *SQLiteItemRepository) Get(ctx context.Context, id domain.ItemID) (*domain.MediaItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id.String())

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns a board's items, newest first.
func (r *SQLiteItemRepository) List(ctx context.Context, boardID string, status *domain.ItemStatus, limit, offset int) ([]*domain.MediaItem, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE board_id = ?`
	args := []any{boardID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListUnfinished returns items still awaiting extraction, oldest first.
func (r *SQLiteItemRepository) ListUnfinished(ctx context.Context) ([]*domain.MediaItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE status IN (?, ?) ORDER BY created_at, id`,
		string(domain.StatusPending), string(domain.StatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("list unfinished items: %w", err)
	}
	defer rows.Close()

	var items []*domain.MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of items on a board.
func (r *SQLiteItemRepository) Count(ctx context.Context, boardID string, status *domain.ItemStatus) (int, error) {
	query := `SELECT COUNT(*) FROM items WHERE board_id = ?`
	args := []any{boardID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// Delete removes an item.
func (r *SQLiteItemRepository) Delete(ctx context.Context, id domain.ItemID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.MediaItem, error) {
	var item domain.MediaItem
	var platform, itemType, status, failureReason string
	var stats, transcript, analysis, rescript sql.NullString
	var createdAt time.Time
	var processedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.BoardID, &item.SourceURL, &platform, &itemType, &status,
		&item.Title, &item.ThumbnailURL, &item.AuthorName, &item.AuthorHandle,
		&item.DurationSeconds, &item.MusicLabel, &item.MediaURL, &item.CaptionURL,
		&stats, &transcript, &analysis, &rescript,
		&item.ErrorMessage, &failureReason,
		&item.PositionX, &item.PositionY, &item.Width,
		&createdAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Platform = domain.Platform(platform)
	item.ItemType = domain.ItemType(itemType)
	item.Status = domain.ItemStatus(status)
	item.FailureReason = domain.FailureReason(failureReason)
	item.CreatedAt = createdAt
	if processedAt.Valid {
		t := processedAt.Time
		item.ProcessedAt = &t
	}

	if err := unmarshalNullable(stats, &item.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}
	if err := unmarshalNullable(transcript, &item.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if err := unmarshalNullable(analysis, &item.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	if err := unmarshalNullable(rescript, &item.Rescript); err != nil {
		return nil, fmt.Errorf("unmarshal rescript: %w", err)
	}

	return &item, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *domain.Stats:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *domain.Transcript:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *domain.Analysis:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *domain.Rescript:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalNullable[T any](col sql.NullString, dst **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
