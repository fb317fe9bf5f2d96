package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type (
	AppConfig = appConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetSilenceUsage set the SilenceUsage flag on root command for tests.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}

// NewForTests creates a new App reading conf as its configuration file, and writing its output to the returned buffer.
func NewForTests(t *testing.T, conf map[string]any, args ...string) (*App, *bytes.Buffer) {
	t.Helper()

	p := GenerateTestConfig(t, conf)

	a, err := New()
	require.NoError(t, err, "Setup: failed to create app")

	var out bytes.Buffer
	a.cmd.SetOut(&out)
	a.cmd.SetErr(&out)
	a.cmd.SetArgs(append(args, "--config", p))
	return a, &out
}

// GenerateTestConfig generates a temporary config file for testing.
func GenerateTestConfig(t *testing.T, conf map[string]any) string {
	t.Helper()

	d, err := yaml.Marshal(conf)
	require.NoError(t, err, "Setup: failed to marshal config for tests")

	confPath := filepath.Join(t.TempDir(), "testconfig.yaml")
	require.NoError(t, os.WriteFile(confPath, d, 0600), "Setup: failed to write config for tests")

	return confPath
}
