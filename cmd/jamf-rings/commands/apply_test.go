package commands_test

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/macdeacon99/jamf-rings/cmd/jamf-rings/commands"
	"github.com/macdeacon99/jamf-rings/internal/jamf"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/macdeacon99/jamf-rings/internal/testutils"
	"github.com/stretchr/testify/require"
)

const (
	smartGroupPath = "/JSSResource/computergroups/id/10"
	plansPath      = "/api/v1/managed-software-updates/plans/group"
	policyPath     = "/JSSResource/policies/id/20"
)

func TestApply(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		failing      []string
		clientSecret string

		wantPaths []string
		wantErr   bool
	}{
		"Applies every call": {
			wantPaths: []string{smartGroupPath, plansPath, policyPath},
		},

		"Following calls are attempted after a failure": {
			failing:   []string{plansPath},
			wantPaths: []string{smartGroupPath, plansPath, policyPath},
			wantErr:   true,
		},
		"Every failure is reported": {
			failing:   []string{smartGroupPath, policyPath},
			wantPaths: []string{smartGroupPath, plansPath, policyPath},
			wantErr:   true,
		},
		"Error on rejected credentials": {
			clientSecret: "wrong",
			wantErr:      true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			feedSrv := testutils.NewFeedServer(t, testutils.FeedDocument(t, sonomaReleases...), "")
			jamfSrv := testutils.NewJamfServer(t, testClientID, testClientSecret)
			jamfSrv.Respond(plansPath, http.StatusCreated, `{"plans":[{"device":{"deviceId":"7"},"planId":"p1"}]}`)
			for _, p := range tc.failing {
				jamfSrv.Respond(p, http.StatusInternalServerError, "failed")
			}

			conf := testConfig(feedSrv.URL, jamfSrv.URL, filepath.Join(t.TempDir(), "cache"))
			if tc.clientSecret != "" {
				conf = set(conf, "jamf.client_secret", tc.clientSecret)
			}

			a, out := commands.NewForTests(t, conf, "apply", "--at", atMinor)
			err := a.Run()
			require.Contains(t, out.String(), "Active rings:     test (1), first (2)", "Plan should be printed before being applied")

			got := jamfSrv.Requests()
			var paths []string
			for _, r := range got {
				paths = append(paths, r.Path)
			}
			require.Equal(t, tc.wantPaths, paths, "Unexpected Jamf Pro calls")

			if tc.wantErr {
				require.ErrorIs(t, err, jamf.ErrDownstream)
				require.False(t, a.UsageError(), "Downstream errors are not usage errors")
				return
			}
			require.NoError(t, err, "Run should not return an error")

			require.Contains(t, got[0].Body, "<value>14.5</value>", "Smart group should match computers older than the target")

			var plan struct {
				Group struct {
					GroupID string `json:"groupId"`
				} `json:"group"`
				Config struct {
					SpecificVersion           string `json:"specificVersion"`
					ForceInstallLocalDateTime string `json:"forceInstallLocalDateTime"`
				} `json:"config"`
			}
			require.NoError(t, json.Unmarshal([]byte(got[1].Body), &plan), "Plan request should be JSON")
			require.Equal(t, "2", plan.Group.GroupID, "Plan should target the last active ring")
			require.Equal(t, "14.5", plan.Config.SpecificVersion)
			require.Equal(t, "2024-05-20T00:00:00", plan.Config.ForceInstallLocalDateTime)

			require.Equal(t, "<policy><scope><computer_groups>"+
				"<computer_group><id>1</id></computer_group><computer_group><id>2</id></computer_group>"+
				"</computer_groups></scope></policy>", got[2].Body, "Policy should be scoped to every active ring")
		})
	}
}

func TestApplyDryRun(t *testing.T) {
	t.Parallel()

	feedSrv := testutils.NewFeedServer(t, testutils.FeedDocument(t, sonomaReleases...), "")
	jamfSrv := testutils.NewJamfServer(t, testClientID, testClientSecret)

	conf := set(testConfig(feedSrv.URL, jamfSrv.URL, filepath.Join(t.TempDir(), "cache")), "rings.first.group_name", "Ring First")
	a, out := commands.NewForTests(t, conf, "apply", "--at", atMinor, "--dry-run")
	require.NoError(t, a.Run(), "Run should not return an error")

	require.Contains(t, out.String(), "Dry run update_smart_group 10:")
	require.Contains(t, out.String(), "Dry run create_update_plan 2:")
	require.Contains(t, out.String(), `"forceInstallLocalDateTime":"2024-05-20T00:00:00"`)
	require.Contains(t, out.String(), "Dry run update_policy_scope 20:")
	require.Contains(t, out.String(), "<computer_group><id>2</id><name>Ring First</name></computer_group>",
		"Configured group names should be sent along the group IDs")
	require.Empty(t, jamfSrv.Requests(), "Dry run should not call Jamf Pro")
	require.Zero(t, jamfSrv.TokenRequests(), "Dry run should not authenticate")
}

func TestApplyConfigErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		key   string
		value any

		wantErr error
	}{
		"Error on missing smart group":   {key: "jamf.smart_group_id", value: 0},
		"Error on missing policy":        {key: "jamf.policy_id", value: 0},
		"Error on ring without group ID": {key: "rings.first.id", value: 0, wantErr: rollout.ErrMissingGroupID},
		"Error on missing tenant URL":    {key: "jamf.url", value: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			feedSrv := testutils.NewFeedServer(t, testutils.FeedDocument(t, sonomaReleases...), "")
			jamfSrv := testutils.NewJamfServer(t, testClientID, testClientSecret)

			conf := set(testConfig(feedSrv.URL, jamfSrv.URL, filepath.Join(t.TempDir(), "cache")), tc.key, tc.value)
			a, _ := commands.NewForTests(t, conf, "apply", "--at", atMinor)

			err := a.Run()
			require.Error(t, err, "Run should return an error")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			}
			require.False(t, a.UsageError(), "Configuration errors are not usage errors")
			require.Empty(t, jamfSrv.Requests(), "No call should be sent with an invalid configuration")
		})
	}
}
