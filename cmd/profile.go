package cmd

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/profile"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved option profiles",
}

// Flags for profile create
var (
	profGameDir       *string
	profChannel       *string
	profVersion       *string
	profEngineVersion *string
	profPatcher       *string
	profPatcherArgs   *[]string
	profVersionsURL   *string
	profNoCache       *bool
	profBlacklist     *[]string
	profBackupExtra   *[]string
	profVerbose       *bool
	profLogFile       *string
)

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newProfileFromFlags(cmd)
		if err := profile.Save(args[0], p); err != nil {
			return err
		}
		logging.Infof("Profile %q saved to %s\n", args[0], profile.Dir())
		return nil
	},
}

func newProfileFromFlags(cmd *cobra.Command) *profile.Profile {
	p := &profile.Profile{}
	changed := cmd.Flags().Changed

	if changed("game-dir") {
		p.GameDir = profGameDir
	}
	if changed("channel") {
		p.Channel = profChannel
	}
	if changed("version") {
		p.Version = profVersion
	}
	if changed("engine-version") {
		p.EngineVersion = profEngineVersion
	}
	if changed("patcher") {
		p.Patcher = profPatcher
	}
	if changed("patcher-arg") {
		p.PatcherArgs = *profPatcherArgs
	}
	if changed("versions-url") {
		p.VersionsURL = profVersionsURL
	}
	if changed("no-cache") {
		p.NoCache = profNoCache
	}
	if changed("blacklist") {
		p.Blacklist = *profBlacklist
	}
	if changed("backup-extra") {
		p.BackupExtra = *profBackupExtra
	}
	if changed("verbose") {
		p.Verbose = profVerbose
	}
	if changed("log-file") {
		p.LogFile = profLogFile
	}
	return p
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			logging.Infoln("No profiles saved.")
			return nil
		}
		for _, n := range names {
			logging.Infoln(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return err
		}
		logging.Infof("%s", buf.String())
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Delete(args[0]); err != nil {
			return err
		}
		logging.Infof("Profile %q deleted.\n", args[0])
		return nil
	},
}

func init() {
	// Wire up flags for create. We use local variables so they only apply to
	// this subcommand and don't collide with the root/install flags.
	f := profileCreateCmd.Flags()
	profGameDir = f.String("game-dir", "", "FEZ directory, or the path to FEZ.exe")
	profChannel = f.String("channel", "stable", "Release channel: stable or nightly")
	profVersion = f.String("version", "latest", "Release label to install")
	profEngineVersion = f.String("engine-version", "", "FEZ version override, e.g. 1.12")
	profPatcher = f.String("patcher", "", "Patcher command")
	profPatcherArgs = f.StringArray("patcher-arg", nil, "Argument passed to the patcher (repeatable)")
	profVersionsURL = f.String("versions-url", "", "URL or path of a YAML release index")
	profNoCache = f.Bool("no-cache", false, "Download without using the cache")
	profBlacklist = f.StringSlice("blacklist", nil, "Extra mod files to remove after unpacking")
	profBackupExtra = f.StringSlice("backup-extra", nil, "Extra game files to back up")
	profVerbose = f.Bool("verbose", false, "Enable verbose logging")
	profLogFile = f.String("log-file", "", "Write command output to a log file")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
