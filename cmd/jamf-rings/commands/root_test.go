package commands_test

import (
	"path/filepath"
	"testing"

	"github.com/macdeacon99/jamf-rings/cmd/jamf-rings/commands"
	"github.com/macdeacon99/jamf-rings/internal/constants"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/macdeacon99/jamf-rings/internal/testutils"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageError(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	// Test when SilenceUsage is true
	app.SetSilenceUsage(true)
	assert.False(t, app.UsageError())

	// Test when SilenceUsage is false
	app.SetSilenceUsage(false)
	assert.True(t, app.UsageError())
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	cmd := app.RootCmd()

	assert.NotNil(t, cmd, "Returned root cmd should not be nil")
	assert.Equal(t, constants.CmdName, cmd.Name())
	for _, sub := range []string{"fetch", "plan", "apply", "version"} {
		c, _, err := cmd.Find([]string{sub})
		require.NoError(t, err, "Root command should have a %s subcommand", sub)
		assert.Equal(t, sub, c.Name())
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)
	root := app.RootCmd()
	sub := func(name string) *cobra.Command {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, "Setup: could not find %s subcommand", name)
		return c
	}

	tests := map[string]testutils.FlagTestCase{
		"verbose":   {Name: "verbose", Short: "v", Default: "0", PersistentFlag: true, BaseCmd: &root},
		"json-logs": {Name: "json-logs", Default: "false", PersistentFlag: true, BaseCmd: &root},
		"cache-dir": {Name: "cache-dir", Default: constants.GetDefaultCachePath(), Dirname: true, PersistentFlag: true, BaseCmd: &root},
		"config":    {Name: "config", Default: "", Filename: true, PersistentFlag: true, BaseCmd: &root},
		"env-file":  {Name: "env-file", Default: "", Filename: true, PersistentFlag: true, BaseCmd: &root},

		"plan format":   {Name: "format", Short: "f", Default: "text", BaseCmd: sub("plan")},
		"plan at":       {Name: "at", Default: "", BaseCmd: sub("plan")},
		"apply dry-run": {Name: "dry-run", Short: "d", Default: "false", BaseCmd: sub("apply")},
		"apply at":      {Name: "at", Default: "", BaseCmd: sub("apply")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			testutils.FlagTestHelper(t, tc)
		})
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cacheDir := filepath.Join(t.TempDir(), "cache")

	tests := map[string]struct {
		conf map[string]any
		args []string

		wantVerbosity int
		wantCacheDir  string
		wantFirst     rollout.RingConfig
		wantErr       bool
	}{
		"Defaults fill unset keys": {
			conf:         testConfig("http://127.0.0.1:0", "", cacheDir),
			wantCacheDir: cacheDir,
			wantFirst:    rollout.RingConfig{ID: 2, MinorDelay: 3, MajorDelay: 7},
		},
		"Config file sets ring delays": {
			conf:         set(testConfig("http://127.0.0.1:0", "", cacheDir), "rings.first.minor_delay", 5),
			wantCacheDir: cacheDir,
			wantFirst:    rollout.RingConfig{ID: 2, MinorDelay: 5, MajorDelay: 7},
		},
		"Flags override config file": {
			conf:          testConfig("http://127.0.0.1:0", "", cacheDir),
			args:          []string{"-vv", "--cache-dir", filepath.Join(cacheDir, "other")},
			wantVerbosity: 2,
			wantCacheDir:  filepath.Join(cacheDir, "other"),
			wantFirst:     rollout.RingConfig{ID: 2, MinorDelay: 3, MajorDelay: 7},
		},

		"Error on negative ring delay": {
			conf:    set(testConfig("http://127.0.0.1:0", "", cacheDir), "rings.fast.major_delay", -1),
			wantErr: true,
		},
		"Error on duplicated ring ID": {
			conf:    set(testConfig("http://127.0.0.1:0", "", cacheDir), "rings.broad.id", 1),
			wantErr: true,
		},
		"Error on negative final delay": {
			conf:    set(testConfig("http://127.0.0.1:0", "", cacheDir), "final_delay.minor", -1),
			wantErr: true,
		},
		"Error on missing env file": {
			conf:    testConfig("http://127.0.0.1:0", "", cacheDir),
			args:    []string{"--env-file", filepath.Join(cacheDir, "missing.env")},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a, _ := commands.NewForTests(t, tc.conf, append([]string{"version"}, tc.args...)...)
			err := a.Run()
			if tc.wantErr {
				require.Error(t, err, "Run should return an error")
				require.False(t, a.UsageError(), "Configuration errors are not usage errors")
				return
			}
			require.NoError(t, err, "Run should not return an error")

			got := a.Config()
			assert.Equal(t, tc.wantVerbosity, got.Verbosity, "Unexpected verbosity")
			assert.Equal(t, tc.wantCacheDir, got.Cache.Dir, "Unexpected cache directory")
			assert.Equal(t, tc.wantFirst, got.Rings.First, "Unexpected first ring")
			assert.Equal(t, rollout.DefaultFinalDelays, got.FinalDelay, "Unexpected final delays")
			assert.Equal(t, constants.DefaultFeedFile, got.Cache.FeedFile, "Unexpected feed file")
			assert.Equal(t, "jamf-rings-tests", got.Feed.UserAgent, "Unexpected user agent")
			assert.Equal(t, testClientSecret, got.Jamf.ClientSecret, "Unexpected client secret")
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	a, out := commands.NewForTests(t, testConfig("http://127.0.0.1:0", "", t.TempDir()), "version")
	require.NoError(t, a.Run(), "Run should not return an error")
	require.Equal(t, constants.CmdName+"\t"+constants.Version+"\n", out.String())
}
