package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/profile"
	"github.com/caedis/fezmod-installer/internal/version"
	"github.com/caedis/fezmod-installer/internal/versions"
	"github.com/spf13/cobra"
)

var (
	gameDir       string
	engineVersion string
	githubToken   string
	versionsURL   string
	noCache       bool
	profileName   string
	verbose       bool
	logFile       string
)

var rootCmd = &cobra.Command{
	Use:           "fezmod-installer",
	Short:         "Installer for FEZMod",
	Long:          "Install, uninstall and manage FEZMod, the mod loader for FEZ. Original game files are backed up before patching and restored on uninstall.",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Apply profile defaults for flags not explicitly set by the user.
		if profileName != "" {
			p, err := profile.Load(profileName)
			if err != nil {
				return err
			}
			applyProfile(cmd, p)
		}

		logging.SetVerbose(verbose)
		if err := logging.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("opening log file %q: %w", logFile, err)
		}
		return nil
	},
}

func applyProfile(cmd *cobra.Command, p *profile.Profile) {
	changed := cmd.Flags().Changed
	if p.GameDir != nil && !changed("game-dir") {
		gameDir = *p.GameDir
	}
	if p.EngineVersion != nil && !changed("engine-version") {
		engineVersion = *p.EngineVersion
	}
	if p.VersionsURL != nil && !changed("versions-url") {
		versionsURL = *p.VersionsURL
	}
	if p.NoCache != nil && !changed("no-cache") {
		noCache = *p.NoCache
	}
	if p.Verbose != nil && !changed("verbose") {
		verbose = *p.Verbose
	}
	if p.LogFile != nil && !changed("log-file") {
		logFile = *p.LogFile
	}
	if p.Channel != nil && !changed("channel") {
		channel = *p.Channel
	}
	if p.Version != nil && !changed("version") {
		releaseLabel = *p.Version
	}
	if p.Patcher != nil && !changed("patcher") {
		patcherCmd = *p.Patcher
	}
	if len(p.PatcherArgs) > 0 && !changed("patcher-arg") {
		patcherArgs = p.PatcherArgs
	}
	if len(p.Blacklist) > 0 && !changed("blacklist") {
		blacklist = p.Blacklist
	}
	if len(p.BackupExtra) > 0 && !changed("backup-extra") {
		backupExtra = p.BackupExtra
	}
}

func Execute() {
	err := rootCmd.Execute()
	closeErr := logging.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return wrapUsageError(err)
	})

	rootCmd.PersistentFlags().StringVarP(&gameDir, "game-dir", "d", ".", "FEZ directory, or the path to FEZ.exe")
	rootCmd.PersistentFlags().StringVar(&engineVersion, "engine-version", "", "FEZ version to install for, e.g. 1.12 (default: detect)")
	rootCmd.PersistentFlags().StringVar(&githubToken, "github-token", "", "GitHub token for listing releases (also reads GITHUB_TOKEN env)")
	rootCmd.PersistentFlags().StringVar(&versionsURL, "versions-url", "", "URL or path of a YAML release index (default: GitHub releases)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Download without using the FEZModCache directory")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Load a saved option profile by name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write command output to a log file")
}

func getGithubToken() string {
	if githubToken != "" {
		return githubToken
	}
	return os.Getenv("GITHUB_TOKEN")
}

func versionSource() versions.Source {
	if versionsURL != "" {
		return &versions.Index{Location: versionsURL}
	}
	return &versions.GitHub{Token: getGithubToken()}
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func wrapUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return wrapUsageError(err)
		}
		return nil
	}
}

func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ")
}
