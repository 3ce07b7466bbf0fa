package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTrackingBatchSize   = 50
	defaultTrackingConcurrency = 4
	defaultScrapeTimeout       = 15 * time.Second
)

type TrackViewsCommand struct {
	BatchSize int
}

type TrackingError struct {
	ClipID   string
	ClipURL  string
	Platform entities.Platform
	Message  string
}

// UpdatedClip is a clip whose trusted view count grew during the batch.
type UpdatedClip struct {
	ClipID        string
	CampaignIDs   []string
	PreviousViews int64
	Views         int64
}

// TrackViewsResult counts every scraped clip once: Successful for trusted
// samples, Anomalies for regressed samples, Failed for scrape failures.
type TrackViewsResult struct {
	Processed    int
	Successful   int
	Failed       int
	Anomalies    int
	Errors       []TrackingError
	UpdatedClips []UpdatedClip
}

type TrackViewsUseCase struct {
	Tracking      ports.ViewTrackingRepository
	Clips         ports.ClipRepository
	Fetcher       ports.ViewCountFetcher
	RateLimiter   ports.ScrapeRateLimiter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	TrackPending  bool
	ScrapeTimeout time.Duration
	Concurrency   int
	Logger        *slog.Logger
}

type trackOutcome int

const (
	outcomeTrusted trackOutcome = iota
	outcomeAnomaly
	outcomeFailed
)

func (uc TrackViewsUseCase) Execute(ctx context.Context, cmd TrackViewsCommand) (TrackViewsResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	limit := cmd.BatchSize
	if limit <= 0 {
		limit = defaultTrackingBatchSize
	}
	statuses := []entities.SubmissionStatus{entities.SubmissionStatusApproved}
	if uc.TrackPending {
		statuses = append(statuses, entities.SubmissionStatusPending)
	}

	candidates, err := uc.Tracking.ListTrackingCandidates(ctx, statuses, limit)
	if err != nil {
		logger.Error("view tracking candidate list failed",
			"event", "view_tracking_list_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"error", err.Error(),
		)
		return TrackViewsResult{}, err
	}

	concurrency := uc.Concurrency
	if concurrency <= 0 {
		concurrency = defaultTrackingConcurrency
	}

	var (
		mu     sync.Mutex
		result TrackViewsResult
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, candidate := range candidates {
		group.Go(func() error {
			outcome, updated, trackErr := uc.trackClip(groupCtx, candidate)

			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			switch outcome {
			case outcomeTrusted:
				result.Successful++
				if updated != nil {
					result.UpdatedClips = append(result.UpdatedClips, *updated)
				}
			case outcomeAnomaly:
				result.Anomalies++
			case outcomeFailed:
				result.Failed++
			}
			if trackErr != nil {
				result.Errors = append(result.Errors, TrackingError{
					ClipID:   candidate.Clip.ClipID,
					ClipURL:  candidate.Clip.URL,
					Platform: candidate.Clip.Platform,
					Message:  trackErr.Error(),
				})
			}
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.Info("view tracking batch completed",
		"event", "view_tracking_batch_completed",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"processed", result.Processed,
		"successful", result.Successful,
		"failed", result.Failed,
		"anomalies", result.Anomalies,
	)
	return result, nil
}

func (uc TrackViewsUseCase) trackClip(ctx context.Context, candidate ports.TrackingCandidate) (trackOutcome, *UpdatedClip, error) {
	logger := application.ResolveLogger(uc.Logger)
	clip := candidate.Clip

	// A throttled clip is recorded like any failed scrape so it still gets a
	// sample and rotates to the back of the queue.
	var fetchErr error
	if uc.RateLimiter != nil {
		allowed, err := uc.RateLimiter.Allow(ctx, clip.Platform)
		if err != nil {
			fetchErr = fmt.Errorf("%w: rate limiter: %v", domainerrors.ErrRateLimited, err)
		} else if !allowed {
			fetchErr = domainerrors.ErrRateLimited
		}
	}

	timeout := uc.ScrapeTimeout
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	var fetched ports.FetchResult
	if fetchErr == nil {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		fetched, fetchErr = uc.Fetcher.FetchViewCount(fetchCtx, clip.URL, clip.Platform)
		cancel()
	}

	now := uc.Clock.Now().UTC()
	baseline := clip.Views
	if last, ok, err := uc.Tracking.LastTrustedSample(ctx, clip.ClipID); err != nil {
		return outcomeFailed, nil, err
	} else if ok {
		baseline = last.Views
	}

	if fetchErr == nil && (!fetched.Success || fetched.Views < 0) {
		fetchErr = domainerrors.ErrScrapeFailed
	}
	if fetchErr != nil {
		if errors.Is(fetchErr, context.DeadlineExceeded) {
			fetchErr = fmt.Errorf("%w: timed out after %s", domainerrors.ErrScrapeFailed, timeout)
		}
		if err := uc.appendSample(ctx, entities.ViewSample{
			ClipID:    clip.ClipID,
			Views:     clip.Views,
			ScrapedAt: now,
			Success:   false,
			Flag:      entities.SampleFlagScrapeFail,
			Detail:    fetchErr.Error(),
		}); err != nil {
			return outcomeFailed, nil, err
		}
		if err := uc.Clips.TouchScraped(ctx, clip.ClipID, now); err != nil {
			return outcomeFailed, nil, err
		}
		logger.Warn("clip view scrape failed",
			"event", "view_scrape_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"clip_id", clip.ClipID,
			"platform", string(clip.Platform),
			"error", fetchErr.Error(),
		)
		return outcomeFailed, nil, fetchErr
	}

	if fetched.Views < baseline {
		if err := uc.appendSample(ctx, entities.ViewSample{
			ClipID:    clip.ClipID,
			Views:     fetched.Views,
			ScrapedAt: now,
			Success:   false,
			Flag:      entities.SampleFlagRegression,
			Detail:    fmt.Sprintf("views regressed from %d to %d", baseline, fetched.Views),
		}); err != nil {
			return outcomeFailed, nil, err
		}
		if err := uc.Clips.TouchScraped(ctx, clip.ClipID, now); err != nil {
			return outcomeFailed, nil, err
		}
		logger.Warn("view sample regressed, keeping last trusted count",
			"event", "view_sample_regression",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"clip_id", clip.ClipID,
			"trusted_views", baseline,
			"scraped_views", fetched.Views,
		)
		return outcomeAnomaly, nil, nil
	}

	if err := uc.appendSample(ctx, entities.ViewSample{
		ClipID:    clip.ClipID,
		Views:     fetched.Views,
		ScrapedAt: now,
		Success:   true,
	}); err != nil {
		return outcomeFailed, nil, err
	}
	if err := uc.Clips.RecordTrustedViews(ctx, clip.ClipID, fetched.Views, now); err != nil {
		return outcomeFailed, nil, err
	}
	if fetched.Views == clip.Views {
		return outcomeTrusted, nil, nil
	}
	return outcomeTrusted, &UpdatedClip{
		ClipID:        clip.ClipID,
		CampaignIDs:   append([]string(nil), candidate.CampaignIDs...),
		PreviousViews: clip.Views,
		Views:         fetched.Views,
	}, nil
}

func (uc TrackViewsUseCase) appendSample(ctx context.Context, sample entities.ViewSample) error {
	sampleID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	sample.SampleID = sampleID
	return uc.Tracking.AppendViewSample(ctx, sample)
}
