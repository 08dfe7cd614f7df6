package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/session"
	"github.com/caedis/fezmod-installer/internal/versions"
)

var (
	channel      string
	releaseLabel string
	zipPath      string
	folderPath   string
	patcherCmd   string
	patcherArgs  []string
	blacklist    []string
	backupExtra  []string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install FEZMod into a FEZ directory",
	Long: `Install FEZMod. Any previous FEZMod install is reverted first, the game
files are backed up to FEZModBackup, the release is downloaded (or read from
FEZModCache) and unpacked, and each game file is patched with the external
patcher given by --patcher.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if patcherCmd == "" {
			return wrapUsageError(errors.New("--patcher is required"))
		}
		if zipPath != "" && folderPath != "" {
			return wrapUsageError(errors.New("--zip and --folder are mutually exclusive"))
		}

		ctx := context.Background()
		fsys := afero.NewOsFs()
		g, err := game.Open(fsys, gameDir, engineVersion)
		if err != nil {
			return err
		}

		src, err := resolveSource(ctx)
		if err != nil {
			return err
		}
		return runWorkflow(ctx, fsys, g, src, newPipeline().Install)
	},
}

func resolveSource(ctx context.Context) (session.Source, error) {
	switch {
	case zipPath != "":
		return session.Source{Kind: session.ManualZip, Path: zipPath}, nil
	case folderPath != "":
		return session.Source{Kind: session.ManualFolder, Path: folderPath}, nil
	}
	if strings.HasSuffix(strings.ToLower(releaseLabel), ".zip") {
		return session.Source{Kind: session.ManualZip, Path: releaseLabel}, nil
	}

	ch, err := versions.ParseChannel(channel)
	if err != nil {
		return session.Source{}, wrapUsageError(err)
	}
	logging.Infoln("Fetching FEZMod versions...")
	all, err := versionSource().Channels(ctx)
	if err != nil {
		return session.Source{}, fmt.Errorf("fetching version list: %w", err)
	}
	spec, err := versions.Find(all, ch, releaseLabel)
	if err != nil {
		return session.Source{}, err
	}
	return session.Source{Kind: session.Remote, Channel: ch, Spec: spec}, nil
}

func init() {
	installCmd.Flags().StringVarP(&channel, "channel", "c", "stable", "Release channel: stable or nightly")
	installCmd.Flags().StringVar(&releaseLabel, "version", "latest", "Release label to install")
	installCmd.Flags().StringVar(&zipPath, "zip", "", "Install from a local FEZMod zip")
	installCmd.Flags().StringVar(&folderPath, "folder", "", "Install the *.mm.* files from a local folder")
	installCmd.Flags().StringVar(&patcherCmd, "patcher", "", "Patcher command, run as <patcher> [args] <file>")
	installCmd.Flags().StringArrayVar(&patcherArgs, "patcher-arg", nil, "Argument passed to the patcher before the file (repeatable)")
	installCmd.Flags().StringSliceVar(&blacklist, "blacklist", nil, "Extra mod files to remove after unpacking")
	installCmd.Flags().StringSliceVar(&backupExtra, "backup-extra", nil, "Extra game files to back up before patching")
	rootCmd.AddCommand(installCmd)
}
