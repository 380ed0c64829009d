package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/internal/config"
	"github.com/wardenscan/warden/internal/review"
	"github.com/wardenscan/warden/internal/validation"
)

func newReviewCommand(global *globalFlags) *cobra.Command {
	var queuePath string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "inspect and resolve findings the validation pipeline routed for human review",
	}

	cmd.PersistentFlags().StringVar(&queuePath, "review-queue", "./results/review-queue.yaml", "path to the persisted review queue")

	cmd.AddCommand(
		newReviewListCommand(&queuePath),
		newReviewDecideCommand(&queuePath),
		newReviewStatsCommand(&queuePath),
		newReviewRecommendCommand(global, &queuePath),
	)

	return cmd
}

func loadQueue(queuePath string) (*review.Queue, error) {
	queue := review.NewQueue(defaultReviewers())
	if err := queue.Load(queuePath); err != nil {
		return nil, fmt.Errorf("load review queue: %w", err)
	}

	return queue, nil
}

func newReviewListCommand(queuePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list pending review records",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := loadQueue(*queuePath)
			if err != nil {
				return err
			}

			pending := queue.Pending()

			out := table.NewWriter()
			out.SetOutputMirror(cmd.OutOrStdout())
			out.AppendHeader(table.Row{"Review ID", "Priority", "Assignee", "Due", "File", "Message"})

			for _, rec := range pending {
				out.AppendRow(table.Row{
					rec.ReviewID, rec.Priority, rec.Assignee, rec.DueAt.Format(time.RFC3339),
					rec.Finding.File, rec.Finding.Message,
				})
			}

			out.Render()

			return nil
		},
	}
}

func newReviewDecideCommand(queuePath *string) *cobra.Command {
	var (
		reviewerID string
		decision   string
		confidence float64
		comments   string
		timeSpent  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "decide <review-id>",
		Short: "record a reviewer's decision on a pending finding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := loadQueue(*queuePath)
			if err != nil {
				return err
			}

			err = queue.RecordDecision(args[0], reviewerID, review.Decision(decision), confidence, comments, timeSpent)
			if err != nil {
				return fmt.Errorf("record decision: %w", err)
			}

			return queue.Persist(*queuePath)
		},
	}

	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "reviewer id recording the decision")
	cmd.Flags().StringVar(&decision, "decision", "", "valid_finding, false_positive, needs_more_info, deferred, or duplicate")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "reviewer's confidence in the decision, 0-1")
	cmd.Flags().StringVar(&comments, "comments", "", "free-text rationale")
	cmd.Flags().DurationVar(&timeSpent, "time-spent", 0, "time the reviewer spent on this finding")
	_ = cmd.MarkFlagRequired("reviewer")
	_ = cmd.MarkFlagRequired("decision")

	return cmd
}

func newReviewStatsCommand(queuePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "summarize review queue throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := loadQueue(*queuePath)
			if err != nil {
				return err
			}

			stats := queue.Statistics()

			fmt.Fprintf(cmd.OutOrStdout(), "pending=%d completed=%d overdue=%d avg-resolution-hours=%.1f\n",
				stats.Pending, stats.Completed, stats.OverdueCount, stats.AverageResolutionHours)

			for decision, count := range stats.DecisionBreakdown {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", decision, count)
			}

			return nil
		},
	}
}

// newReviewRecommendCommand surfaces validation.RecommendThresholds as a CLI
// escape hatch for operators tuning the pipeline from a completed run's
// review history rather than guessing at config values by hand.
func newReviewRecommendCommand(global *globalFlags, queuePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend-thresholds",
		Short: "suggest accept/review thresholds from reviewer-confirmed confidence history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			queue, err := loadQueue(*queuePath)
			if err != nil {
				return err
			}

			current := validation.Thresholds{
				Accept:  cfg.Validation.AcceptThreshold,
				Review:  cfg.Validation.ReviewThreshold,
				Dismiss: cfg.Validation.DismissThreshold,
			}

			samples := confirmedConfidenceSamples(queue)
			recommended := validation.RecommendThresholds(samples, current)

			fmt.Fprintf(cmd.OutOrStdout(), "samples=%d accept=%.3f review=%.3f dismiss=%.3f\n",
				len(samples), recommended.Accept, recommended.Review, recommended.Dismiss)

			return nil
		},
	}
}

func confirmedConfidenceSamples(queue *review.Queue) []float64 {
	var samples []float64

	for _, rec := range queue.Completed() {
		if rec.Decision != review.DecisionValidFinding {
			continue
		}

		samples = append(samples, rec.ReviewerConfidence)
	}

	return samples
}
