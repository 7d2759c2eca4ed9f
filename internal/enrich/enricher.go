// Package enrich runs the LLM-backed enrichment jobs: hook analysis and
// brand-voice rescripting. Jobs are idempotent; re-running one replaces
// its artifact wholesale and never touches the item's lifecycle status.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/pkg/llm"
)

// Enricher runs enrichment jobs against the configured model.
type Enricher struct {
	llm    llm.Client
	logger *slog.Logger
}

// New creates an enricher. client may be nil when no LLM key is
// configured; every job then fails with ErrEnrichmentFailed.
func New(client llm.Client, logger *slog.Logger) *Enricher {
	return &Enricher{llm: client, logger: logger}
}

// Configured reports whether an LLM backend is available.
func (e *Enricher) Configured() bool {
	return e.llm != nil
}

// AnalyzeHooks scores the item's opening hook. A transcript is
// required; the hook lives in the spoken opening, not the title.
func (e *Enricher) AnalyzeHooks(ctx context.Context, item *domain.MediaItem) (*domain.Analysis, error) {
	if e.llm == nil {
		return nil, domain.NewItemError(item.ID, "analyze",
			fmt.Errorf("%w: no model configured", domain.ErrEnrichmentFailed))
	}
	if item.Transcript.IsEmpty() {
		return nil, domain.NewItemError(item.ID, "analyze", domain.ErrTranscriptEmpty)
	}

	req := llm.HookAnalysisRequest{
		Title:      item.Title,
		Platform:   string(item.Platform),
		DurationS:  item.DurationSeconds,
		Transcript: item.Transcript.Text,
	}

	resp, err := e.llm.AnalyzeHooks(ctx, req)
	if err != nil {
		return nil, domain.NewItemError(item.ID, "analyze",
			fmt.Errorf("%w: %v", domain.ErrEnrichmentFailed, err))
	}

	analysis := &domain.Analysis{
		HookScore:     int(math.Round(resp.HookScore)),
		HookType:      resp.HookType,
		ContentThemes: resp.ContentThemes,
	}

	e.logger.Info("hook analysis complete",
		"item_id", item.ID,
		"hook_score", analysis.HookScore,
		"hook_type", analysis.HookType)

	return analysis, nil
}

// Rescript adapts the item's script to the given brand voice. A
// transcript is required.
func (e *Enricher) Rescript(ctx context.Context, item *domain.MediaItem, voice domain.BrandVoice) (*domain.Rescript, error) {
	if e.llm == nil {
		return nil, domain.NewItemError(item.ID, "rescript",
			fmt.Errorf("%w: no model configured", domain.ErrEnrichmentFailed))
	}
	if item.Transcript.IsEmpty() {
		return nil, domain.NewItemError(item.ID, "rescript", domain.ErrTranscriptEmpty)
	}

	resp, err := e.llm.GenerateRescript(ctx, llm.RescriptRequest{
		Transcript:     item.Transcript.Text,
		Title:          item.Title,
		Tone:           voice.Tone,
		Product:        voice.Product,
		TargetAudience: voice.TargetAudience,
	})
	if err != nil {
		return nil, domain.NewItemError(item.ID, "rescript",
			fmt.Errorf("%w: %v", domain.ErrEnrichmentFailed, err))
	}

	rescript := &domain.Rescript{
		AdaptedScript:    resp.AdaptedScript,
		ShotList:         resp.ShotList,
		HookAlternatives: resp.HookAlternatives,
		Hashtags:         normalizeHashtags(resp.Hashtags),
		PostingStrategy:  resp.PostingStrategy,
	}

	e.logger.Info("rescript complete",
		"item_id", item.ID,
		"shots", len(rescript.ShotList),
		"hashtags", len(rescript.Hashtags))

	return rescript, nil
}

// normalizeHashtags strips stray # prefixes the model sometimes adds.
func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
