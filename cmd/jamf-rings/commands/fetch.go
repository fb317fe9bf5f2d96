package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *App) installFetch() {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Refresh the cached feed document",
		Long: `Refresh the cached feed document.

The document is only downloaded again when the feed changed since the last fetch. When the feed
cannot be reached, the cached copy is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.exportMetrics()

			c, err := a.openCache()
			if err != nil {
				return err
			}
			_, outcome, err := c.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			a.metrics.RecordFetch(outcome)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", outcome, filepath.Join(a.config.Cache.Dir, a.config.Cache.FeedFile))
			return err
		},
	}
	a.cmd.AddCommand(cmd)
}
