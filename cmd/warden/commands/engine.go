package commands

import (
	"log/slog"

	"github.com/wardenscan/warden/internal/cache"
	"github.com/wardenscan/warden/internal/config"
	"github.com/wardenscan/warden/internal/orchestrator"
	"github.com/wardenscan/warden/internal/review"
	"github.com/wardenscan/warden/internal/validation"
)

// buildOrchestrator wires the registry, cache, and validation pipeline into
// an Orchestrator per cfg, loading any persisted cache from cfg.Cache.Path.
// reviewQueuePath, if non-empty, is loaded into queue before it's handed to
// the pipeline so RequiresReview findings land alongside prior runs' state.
func buildOrchestrator(cfg *config.Config, reviewQueuePath string, logger *slog.Logger) (*orchestrator.Orchestrator, *review.Queue, error) {
	reg, err := buildRegistry()
	if err != nil {
		return nil, nil, err
	}

	c := cache.New(logger)
	if cfg.Cache.Enabled && cfg.Cache.Path != "" {
		c.Load(cfg.Cache.Path)
	}

	queue := review.NewQueue(defaultReviewers())

	if reviewQueuePath != "" {
		if err := queue.Load(reviewQueuePath); err != nil {
			return nil, nil, err
		}
	}

	var validator *validation.Pipeline

	if cfg.Validation.Enabled {
		thresholds := validation.Thresholds{
			Accept:  cfg.Validation.AcceptThreshold,
			Review:  cfg.Validation.ReviewThreshold,
			Dismiss: cfg.Validation.DismissThreshold,
		}

		validator, _ = validation.NewDefault(nil, thresholds, cfg.Validation.MaxValidationTime, queue, logger)
	}

	return orchestrator.New(reg, c, validator, cfg, logger), queue, nil
}

// defaultReviewers is the roster every queue starts with. Queue.Load
// replaces it with the roster stored in an existing queue document, and
// Queue.Persist writes the current roster back to that document.
func defaultReviewers() []review.Reviewer {
	return []review.Reviewer{
		{ID: "reviewer-1", Expertise: nil, MaxWorkload: 50},
	}
}
