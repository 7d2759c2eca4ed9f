// Package transcript turns a video item into a time-aligned transcript,
// preferring platform captions and falling back to speech-to-text on the
// downloaded audio track.
package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/downloader"
	"github.com/candidstudio/moodgrab/pkg/whisper"
)

// Extractor resolves transcripts for video items.
//
// A missing transcript is a normal outcome, not a failure: items without
// captions and without a reachable audio track simply end up with an
// empty transcript. Only genuine I/O or API breakage surfaces as error.
type Extractor struct {
	captions   *CaptionFetcher
	stt        whisper.Client
	downloader downloader.Downloader
	cfg        config.TranscriptConfig
	logger     *slog.Logger
}

// NewExtractor creates a transcript extractor. stt may be nil when no
// speech-to-text key is configured; caption extraction still works.
func NewExtractor(captions *CaptionFetcher, stt whisper.Client, dl downloader.Downloader, cfg config.TranscriptConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		captions:   captions,
		stt:        stt,
		downloader: dl,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract resolves a transcript for the item. Non-video items are
// rejected with ErrNotVideo.
func (e *Extractor) Extract(ctx context.Context, item *domain.MediaItem) (*domain.Transcript, error) {
	if !item.IsVideo() {
		return nil, domain.ErrNotVideo
	}

	if item.CaptionURL != "" {
		t, err := e.captions.Fetch(ctx, item.CaptionURL)
		if err == nil && !t.IsEmpty() {
			e.logger.Info("transcript from captions",
				"item_id", item.ID,
				"segments", len(t.Segments))
			return t, nil
		}
		if err != nil {
			e.logger.Warn("caption fetch failed, falling back to speech-to-text",
				"item_id", item.ID,
				"error", err)
		}
	}

	return e.transcribeAudio(ctx, item)
}

func (e *Extractor) transcribeAudio(ctx context.Context, item *domain.MediaItem) (*domain.Transcript, error) {
	if e.stt == nil {
		e.logger.Info("speech-to-text not configured, leaving transcript empty",
			"item_id", item.ID)
		return &domain.Transcript{}, nil
	}

	if item.MediaURL == "" {
		return nil, domain.NewItemError(item.ID, "transcribe", domain.ErrNoMediaURL)
	}

	if e.cfg.MaxDurationSeconds > 0 && item.DurationSeconds > e.cfg.MaxDurationSeconds {
		return nil, domain.NewItemError(item.ID, "transcribe",
			fmt.Errorf("%w: %ds exceeds %ds ceiling", domain.ErrAudioTooLong,
				item.DurationSeconds, e.cfg.MaxDurationSeconds))
	}

	// A HEAD probe catches oversized media before any bytes move.
	// Probe failure is not conclusive: many CDNs reject HEAD, so the
	// capped download below stays the authoritative check.
	if probe, err := e.downloader.Probe(ctx, item.MediaURL); err == nil &&
		e.cfg.MaxAudioBytes > 0 && probe.ContentLength > e.cfg.MaxAudioBytes {
		return nil, domain.NewItemError(item.ID, "transcribe",
			fmt.Errorf("%w: %d bytes exceeds %d byte limit", domain.ErrAudioTooLong,
				probe.ContentLength, e.cfg.MaxAudioBytes))
	}

	audio, err := e.downloader.DownloadCapped(ctx, item.MediaURL, e.cfg.MaxAudioBytes)
	if err != nil {
		if errors.Is(err, domain.ErrAudioTooLong) {
			return nil, domain.NewItemError(item.ID, "transcribe", err)
		}
		return nil, domain.NewItemError(item.ID, "transcribe",
			fmt.Errorf("download audio: %w", err))
	}

	resp, err := e.stt.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioData: bytes.NewReader(audio),
		Filename:  "audio.mp4",
		Model:     e.cfg.Model,
	})
	if err != nil {
		return nil, domain.NewItemError(item.ID, "transcribe",
			fmt.Errorf("%w: %v", domain.ErrSpeechToTextUnavailable, err))
	}

	t := fromWhisperResponse(resp)
	e.logger.Info("transcript from speech-to-text",
		"item_id", item.ID,
		"segments", len(t.Segments),
		"bytes", len(audio))

	return t, nil
}

// fromWhisperResponse converts the API's second-based segments to the
// millisecond-based domain shape.
func fromWhisperResponse(resp *whisper.TranscriptionResponse) *domain.Transcript {
	t := &domain.Transcript{Text: resp.Text}
	for _, seg := range resp.Segments {
		t.Segments = append(t.Segments, domain.Segment{
			StartMs: int64(seg.Start * 1000),
			EndMs:   int64(seg.End * 1000),
			Text:    seg.Text,
		})
	}
	return t
}
