// Package extract resolves social-media URLs into normalized metadata
// records through per-platform chains of ranked tiers.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// Tier is one ranked attempt strategy within a platform's extraction
// chain, ordered from most-reliable/least-informative to
// least-reliable/most-informative.
type Tier interface {
	// Name identifies the tier in diagnostics.
	Name() string

	// Timeout is the per-attempt deadline for this tier.
	Timeout() time.Duration

	// Fetch attempts to resolve metadata for the URL. Expected failure
	// modes come back as *TierError; anything else is treated as a
	// parse error.
	Fetch(ctx context.Context, rawURL string) (*domain.Metadata, error)
}

// TierError is a classified tier failure.
type TierError struct {
	Reason domain.FailureReason
	Detail string
}

func (e *TierError) Error() string {
	return string(e.Reason) + ": " + e.Detail
}

// NewTierError creates a classified tier failure.
func NewTierError(reason domain.FailureReason, detail string) *TierError {
	return &TierError{Reason: reason, Detail: detail}
}

// Extractor runs an ordered tier chain for one platform.
//
// Tiers execute strictly sequentially: a later tier is only attempted
// after every earlier one failed, so rate-limit budget is never spent on
// tiers that wouldn't be used. The first successful tier wins wholesale;
// fields are not unioned across tiers.
type Extractor struct {
	platform domain.Platform
	tiers    []Tier
	logger   *slog.Logger
}

// NewExtractor creates an extractor from an ordered tier chain.
func NewExtractor(platform domain.Platform, tiers []Tier, logger *slog.Logger) *Extractor {
	return &Extractor{platform: platform, tiers: tiers, logger: logger}
}

// Platform returns the platform this extractor serves.
func (e *Extractor) Platform() domain.Platform {
	return e.platform
}

// Extract walks the tier chain and returns either the first successful
// metadata record or the accumulated failures of every tier. It never
// returns an error: all expected failure modes are values.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *domain.ExtractionResult {
	result := &domain.ExtractionResult{}

	for _, tier := range e.tiers {
		tierCtx, cancel := context.WithTimeout(ctx, tier.Timeout())
		meta, err := tier.Fetch(tierCtx, rawURL)
		cancel()

		if err == nil && meta != nil {
			result.Metadata = meta
			result.Tier = tier.Name()
			e.logger.Debug("tier succeeded",
				"platform", e.platform,
				"tier", tier.Name(),
				"url", rawURL,
			)
			return result
		}

		reason, detail := classifyFailure(err)
		result.Failures = append(result.Failures, domain.TierFailure{
			Tier:   tier.Name(),
			Reason: reason,
			Detail: detail,
		})

		e.logger.Warn("tier failed, falling through",
			"platform", e.platform,
			"tier", tier.Name(),
			"reason", reason,
			"detail", detail,
		)

		// Stop walking the chain once the caller itself is gone.
		if ctx.Err() != nil {
			break
		}
	}

	return result
}

func classifyFailure(err error) (domain.FailureReason, string) {
	if err == nil {
		return domain.FailureParseError, "tier returned no metadata"
	}

	var tierErr *TierError
	if errors.As(err, &tierErr) {
		return tierErr.Reason, tierErr.Detail
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout, "tier timed out"
	}
	if errors.Is(err, context.Canceled) {
		return domain.FailureTimeout, "caller cancelled"
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return domain.FailureRateLimited, err.Error()
	}

	return domain.FailureParseError, err.Error()
}
