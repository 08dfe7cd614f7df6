package cmd

import (
	"context"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caedis/fezmod-installer/internal/backup"
	"github.com/caedis/fezmod-installer/internal/cache"
	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/platform"
	"github.com/caedis/fezmod-installer/internal/semver"
	"github.com/caedis/fezmod-installer/internal/versions"
)

var checkLatest bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the FEZ version, the installed FEZMod release, backups and cache",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fsys := afero.NewOsFs()
		g, err := game.Open(fsys, gameDir, engineVersion)
		if err != nil {
			return err
		}

		logging.Infof("Game directory: %s\n", g.Dir)
		logging.Infof("FEZ version:    %s\n", g.Engine)
		if g.State != nil {
			track := g.State.Channel
			if track == "" {
				track = "manual"
			}
			logging.Infof("FEZMod:         %s (%s) %s\n", g.State.Label, track, statusLabel(g.State.Status))
			if !g.State.InstalledAt.IsZero() {
				logging.Infof("Installed:      %s\n", humanize.Time(g.State.InstalledAt))
			}
		} else {
			logging.Infof("FEZMod:         %s\n", color.YellowString("not installed"))
		}

		records, err := backup.New(fsys, g.Dir).Records()
		if err != nil {
			return err
		}
		logging.Infof("Backups:        %d files in %s\n", len(records), backup.DirName)
		for _, r := range records {
			logging.Debugf("Verbose:   %s\n", r.FileName)
		}

		entries, err := cache.New(fsys, filepath.Join(g.Dir, cache.DirName), nil).List()
		if err != nil {
			return err
		}
		var total int64
		for _, e := range entries {
			total += e.Size
			logging.Debugf("Verbose:   %s\n", e)
		}
		logging.Infof("Cache:          %d archives, %s\n", len(entries), humanize.IBytes(uint64(total)))

		if info, err := platform.Describe(ctx); err == nil {
			logging.Debugf("Verbose: host %s\n", info)
		}

		if checkLatest && g.State != nil && g.State.Channel != "" {
			return reportLatest(ctx, versions.Channel(g.State.Channel), g.State.Label)
		}
		return nil
	},
}

func reportLatest(ctx context.Context, ch versions.Channel, installed string) error {
	all, err := versionSource().Channels(ctx)
	if err != nil {
		logging.Warnf("could not fetch version list: %v\n", err)
		return nil
	}
	latest, err := versions.Find(all, ch, "")
	if err != nil {
		logging.Warnf("%v\n", err)
		return nil
	}
	if semver.CompareStrings(installed, latest.Label) < 0 {
		logging.Infof("Update available: %s -> %s\n", installed, color.GreenString(latest.Label))
		return nil
	}
	logging.Infoln("FEZMod is up to date.")
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&checkLatest, "check", false, "Also check for a newer release in the installed channel")
	rootCmd.AddCommand(statusCmd)
}
