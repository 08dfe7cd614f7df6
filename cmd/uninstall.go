package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/session"
)

var keepCache bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Restore the original game files and clear the download cache",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fsys := afero.NewOsFs()
		g, err := game.Open(fsys, gameDir, engineVersion)
		if err != nil {
			return err
		}

		p := newPipeline()
		op := p.UninstallAndClear
		if keepCache {
			op = p.Uninstall
		}
		return runWorkflow(ctx, fsys, g, session.Source{}, op)
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete downloaded FEZMod archives from FEZModCache",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fsys := afero.NewOsFs()
		g, err := game.Open(fsys, gameDir, engineVersion)
		if err != nil {
			return err
		}
		return runWorkflow(ctx, fsys, g, session.Source{}, newPipeline().ClearCache)
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&keepCache, "keep-cache", false, "Keep downloaded archives in FEZModCache")
	rootCmd.AddCommand(uninstallCmd, clearCacheCmd)
}
