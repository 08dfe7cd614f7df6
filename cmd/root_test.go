package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caedis/fezmod-installer/internal/profile"
	"github.com/caedis/fezmod-installer/internal/session"
	"github.com/spf13/cobra"
)

func TestUsageArgsWrapsValidationErrors(t *testing.T) {
	wrapped := usageArgs(cobra.ExactArgs(1))
	cmd := &cobra.Command{Use: "test"}

	if err := wrapped(cmd, []string{"ok"}); err != nil {
		t.Fatalf("usageArgs returned unexpected error for valid args: %v", err)
	}

	err := wrapped(cmd, nil)
	if err == nil {
		t.Fatalf("usageArgs should return an error for invalid args")
	}
	if !isUsageError(err) {
		t.Fatalf("usageArgs error should be marked as usage error: %v", err)
	}
}

func TestIsUsageError(t *testing.T) {
	if !isUsageError(wrapUsageError(errors.New("bad args"))) {
		t.Fatalf("wrapped usage error not detected")
	}
	if !isUsageError(errors.New(`unknown command "foo" for "fezmod-installer"`)) {
		t.Fatalf("unknown command error should be treated as usage error")
	}
	if isUsageError(errors.New("runtime failure")) {
		t.Fatalf("runtime failure should not be treated as usage error")
	}
}

func TestApplyProfileKeepsExplicitFlags(t *testing.T) {
	oldGameDir, oldChannel, oldBlacklist := gameDir, channel, blacklist
	t.Cleanup(func() { gameDir, channel, blacklist = oldGameDir, oldChannel, oldBlacklist })

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVarP(&gameDir, "game-dir", "d", ".", "")
	cmd.Flags().StringVar(&channel, "channel", "stable", "")
	cmd.Flags().StringSliceVar(&blacklist, "blacklist", nil, "")
	if err := cmd.Flags().Parse([]string{"--game-dir", "/from/flag"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	dir, ch := "/from/profile", "nightly"
	applyProfile(cmd, &profile.Profile{
		GameDir:   &dir,
		Channel:   &ch,
		Blacklist: []string{"Old.mm.dll"},
	})

	if gameDir != "/from/flag" {
		t.Fatalf("gameDir=%q want flag value", gameDir)
	}
	if channel != "nightly" {
		t.Fatalf("channel=%q want profile value", channel)
	}
	if len(blacklist) != 1 || blacklist[0] != "Old.mm.dll" {
		t.Fatalf("blacklist=%v want profile value", blacklist)
	}
}

func TestResolveSourceManual(t *testing.T) {
	oldZip, oldFolder, oldLabel := zipPath, folderPath, releaseLabel
	t.Cleanup(func() { zipPath, folderPath, releaseLabel = oldZip, oldFolder, oldLabel })

	zipPath, folderPath, releaseLabel = "/tmp/FEZMod.zip", "", "latest"
	src, err := resolveSource(context.Background())
	if err != nil {
		t.Fatalf("resolveSource failed: %v", err)
	}
	if src.Kind != session.ManualZip || src.Path != "/tmp/FEZMod.zip" {
		t.Fatalf("source=%+v want manual zip", src)
	}

	zipPath, folderPath = "", "/tmp/fezmod"
	src, err = resolveSource(context.Background())
	if err != nil {
		t.Fatalf("resolveSource failed: %v", err)
	}
	if src.Kind != session.ManualFolder {
		t.Fatalf("source=%+v want manual folder", src)
	}
}

func TestResolveSourceFromIndex(t *testing.T) {
	oldURL, oldChannel, oldLabel := versionsURL, channel, releaseLabel
	t.Cleanup(func() { versionsURL, channel, releaseLabel = oldURL, oldChannel, oldLabel })

	path := filepath.Join(t.TempDir(), "versions.yaml")
	index := "nightly:\n  - label: \"152\"\n    url: https://example.test/152.zip\n  - label: \"151\"\n    url: https://example.test/151.zip\n"
	if err := os.WriteFile(path, []byte(index), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	versionsURL, channel, releaseLabel = path, "nightly", "151"

	src, err := resolveSource(context.Background())
	if err != nil {
		t.Fatalf("resolveSource failed: %v", err)
	}
	if src.Kind != session.Remote || src.URL != "https://example.test/151.zip" {
		t.Fatalf("source=%+v want nightly 151", src)
	}
	if src.CacheKey() != "devbuild151.zip" {
		t.Fatalf("CacheKey=%q want devbuild151.zip", src.CacheKey())
	}

	channel = "beta"
	if _, err := resolveSource(context.Background()); !isUsageError(err) {
		t.Fatalf("bad channel error=%v want usage error", err)
	}
}
