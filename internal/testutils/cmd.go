// Package testutils provides helper functions for testing.
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FlagTestCase describes the expected shape of a cobra command flag.
type FlagTestCase struct {
	Name           string
	Short          string
	Default        string
	Dirname        bool
	Filename       bool
	PersistentFlag bool
	BaseCmd        *cobra.Command
}

// FlagTestHelper checks that a flag of a cobra command matches its test case.
func FlagTestHelper(t *testing.T, tc FlagTestCase) {
	t.Helper()

	var flag *pflag.Flag
	if tc.PersistentFlag {
		flag = tc.BaseCmd.PersistentFlags().Lookup(tc.Name)
	} else {
		flag = tc.BaseCmd.Flags().Lookup(tc.Name)
	}
	require.NotNil(t, flag, "Flag %q should exist", tc.Name)

	assert.Equal(t, tc.Short, flag.Shorthand, "Unexpected shorthand for flag %q", tc.Name)
	assert.Equal(t, tc.Default, flag.DefValue, "Unexpected default for flag %q", tc.Name)

	if tc.Dirname {
		assert.Equal(t, []string{}, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should complete directories", tc.Name)
	} else {
		assert.Nil(t, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should not complete directories", tc.Name)
	}

	_, filename := flag.Annotations[cobra.BashCompFilenameExt]
	assert.Equal(t, tc.Filename, filename, "Unexpected file name completion for flag %q", tc.Name)
}
