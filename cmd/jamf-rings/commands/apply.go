package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/macdeacon99/jamf-rings/internal/jamf"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/spf13/cobra"
)

const (
	callUpdateSmartGroup  = "update_smart_group"
	callCreateUpdatePlan  = "create_update_plan"
	callUpdatePolicyScope = "update_policy_scope"
)

func (a *App) installApply() {
	var at dateFlag
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the rollout plan to Jamf Pro",
		Long: `Apply the rollout plan to Jamf Pro.

The smart group of outdated computers is updated to the target version, an update plan forcing the
install at the deadline is created for the last active ring, and the notification policy is scoped
to every active ring. A failing call does not prevent the following ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.exportMetrics()

			p, err := a.computePlan(cmd.Context(), time.Time(at))
			if err != nil {
				return err
			}
			if err := writePlan(cmd.OutOrStdout(), p, formatText); err != nil {
				return err
			}
			return a.applyPlan(cmd.Context(), cmd.OutOrStdout(), p, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "print the Jamf Pro payloads instead of sending them")
	cmd.Flags().Var(&at, "at", "compute the plan as of this date (RFC 3339 or YYYY-MM-DD) instead of now")

	a.cmd.AddCommand(cmd)
}

type jamfCall struct {
	name    string
	target  int
	payload func() ([]byte, error)
	send    func(context.Context, *jamf.Client) error
}

// applyPlan runs every Jamf Pro call of p, and returns all their errors joined.
func (a App) applyPlan(ctx context.Context, w io.Writer, p rollout.Plan, dryRun bool) error {
	cfg := a.config.Jamf
	frontier := p.Frontier()

	var errs error
	if cfg.SmartGroupID <= 0 {
		errs = errors.Join(errs, errors.New("jamf.smart_group_id must be set"))
	}
	if cfg.PolicyID <= 0 {
		errs = errors.Join(errs, errors.New("jamf.policy_id must be set"))
	}
	if errs != nil {
		return fmt.Errorf("cannot apply plan: %w", errs)
	}

	groups := make([]jamf.Group, 0, len(p.ActiveRings))
	for _, r := range p.ActiveRings {
		groups = append(groups, jamf.Group{ID: r.ID, Name: r.GroupName})
	}

	calls := []jamfCall{
		{
			name:    callUpdateSmartGroup,
			target:  cfg.SmartGroupID,
			payload: func() ([]byte, error) { return jamf.SmartGroupPayload(p.TargetVersion) },
			send: func(ctx context.Context, c *jamf.Client) error {
				return c.UpdateSmartGroup(ctx, cfg.SmartGroupID, p.TargetVersion)
			},
		},
		{
			name:   callCreateUpdatePlan,
			target: frontier.ID,
			payload: func() ([]byte, error) {
				return jamf.UpdatePlanPayload(frontier.ID, p.TargetVersion, p.InstallDeadline)
			},
			send: func(ctx context.Context, c *jamf.Client) error {
				_, err := c.CreateUpdatePlan(ctx, frontier.ID, p.TargetVersion, p.InstallDeadline)
				return err
			},
		},
		{
			name:    callUpdatePolicyScope,
			target:  cfg.PolicyID,
			payload: func() ([]byte, error) { return jamf.PolicyScopePayload(groups) },
			send: func(ctx context.Context, c *jamf.Client) error {
				return c.UpdatePolicyScope(ctx, cfg.PolicyID, groups)
			},
		},
	}

	if dryRun {
		return printCalls(w, calls)
	}

	client, err := jamf.New(ctx, cfg, jamf.WithLogger(a.log))
	if err != nil {
		return err
	}

	for _, c := range calls {
		err := c.send(ctx, client)
		a.metrics.RecordCall(c.name, err)
		if err != nil {
			a.log.Error("Jamf Pro call failed", "call", c.name, "id", c.target, "error", err)
			errs = errors.Join(errs, err)
			continue
		}
		a.log.Info("Jamf Pro call succeeded", "call", c.name, "id", c.target)
	}
	if errs != nil {
		return fmt.Errorf("rollout not fully applied: %w", errs)
	}
	return nil
}

// printCalls writes the payload of every call to w, without sending anything.
func printCalls(w io.Writer, calls []jamfCall) error {
	for _, c := range calls {
		data, err := c.payload()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Dry run %s %d:\n%s\n", c.name, c.target, data); err != nil {
			return err
		}
	}
	return nil
}
