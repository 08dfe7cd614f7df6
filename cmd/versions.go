package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/versions"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List installable FEZMod releases",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := versionSource().Channels(context.Background())
		if err != nil {
			return fmt.Errorf("fetching version list: %w", err)
		}

		// Mark the installed release when a game directory is at hand.
		installed := ""
		if g, err := game.Open(afero.NewOsFs(), gameDir, engineVersion); err == nil {
			installed = g.ModVersion()
		}

		for _, ch := range versions.Channels {
			specs := all[ch]
			logging.Infof("%s (%d)\n", color.New(color.Bold).Sprint(ch), len(specs))
			for _, s := range specs {
				marker := ""
				if installed != "" && s.Label == installed {
					marker = " " + statusLabel("installed")
				}
				logging.Infof("  %s%s\n", s.Label, marker)
				logging.Debugf("Verbose:    %s\n", s.URL)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
