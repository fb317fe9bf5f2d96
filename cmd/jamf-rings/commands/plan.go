package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/macdeacon99/jamf-rings/internal/feed"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/spf13/cobra"
)

func (a *App) installPlan() {
	var at dateFlag
	format := formatText

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the rollout plan of the current release",
		Long: `Print the rollout plan of the current release.

The plan names the release to roll out, the rings receiving it and the forced install deadline.
Nothing is changed on Jamf Pro.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.exportMetrics()

			p, err := a.computePlan(cmd.Context(), time.Time(at))
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), p, format)
		},
	}

	cmd.Flags().VarP(&format, "format", "f", "output format: text, json, yaml or toml")
	cmd.Flags().Var(&at, "at", "compute the plan as of this date (RFC 3339 or YYYY-MM-DD) instead of now")

	a.cmd.AddCommand(cmd)
}

// computePlan refreshes the feed and plans the rollout of its releases, as of asOf when set.
func (a App) computePlan(ctx context.Context, asOf time.Time) (rollout.Plan, error) {
	c, err := a.openCache()
	if err != nil {
		return rollout.Plan{}, err
	}
	doc, outcome, err := c.Fetch(ctx)
	if err != nil {
		return rollout.Plan{}, err
	}
	a.metrics.RecordFetch(outcome)

	releases, err := feed.History(doc, a.config.Feed.Section)
	if err != nil {
		return rollout.Plan{}, fmt.Errorf("could not read feed releases: %w", err)
	}

	opts := []rollout.Options{rollout.WithLogger(a.log)}
	if !asOf.IsZero() {
		opts = append(opts, rollout.AsOf(asOf))
	}
	planner, err := rollout.New(a.config.Rings, a.config.FinalDelay, opts...)
	if err != nil {
		return rollout.Plan{}, err
	}

	p, err := planner.Plan(releases)
	if err != nil {
		return rollout.Plan{}, err
	}
	a.metrics.RecordPlan(p)
	a.log.Info("Planned rollout", "target", p.TargetVersion, "class", p.Class,
		"active_rings", p.ActiveRingIDs(), "deadline", p.InstallDeadline)

	return p, nil
}
