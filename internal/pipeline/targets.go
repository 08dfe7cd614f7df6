package pipeline

import (
	"strings"

	"github.com/caedis/fezmod-installer/internal/archive"
	"github.com/caedis/fezmod-installer/internal/semver"
)

// Role is what a patch target is to the game.
type Role int

const (
	Dependency Role = iota
	Engine
	Executable
)

func (r Role) String() string {
	switch r {
	case Engine:
		return "engine"
	case Executable:
		return "executable"
	default:
		return "dependency"
	}
}

// Target is one game file to patch.
type Target struct {
	FileName string
	Role     Role
	Order    int
	// Blurb is logged before the file is patched.
	Blurb string
}

// Targets returns the files to patch for a FEZ version, in patch order. The
// executable is always last.
func Targets(engine semver.Version) []Target {
	framework := Target{
		FileName: "MonoGame.Framework.dll",
		Blurb:    "No FNA.dll here, so this is a MonoGame build of FEZ.",
	}
	if engine.AtLeast(archive.FNAEngine) {
		framework = Target{
			FileName: "FNA.dll",
			Blurb:    "FNA replaces MonoGame as the framework below FEZ 1.12 and newer.",
		}
	}

	targets := []Target{
		{FileName: "Common.dll", Blurb: "Common.dll is small; this is quick."},
		{FileName: "EasyStorage.dll", Blurb: "EasyStorage.dll handles saves and platform storage."},
		framework,
		{FileName: "FezEngine.dll", Role: Engine, Blurb: "The Trixel engine: textures, music, geometry and mod communication live here."},
		{FileName: "FEZ.exe", Role: Executable, Blurb: "FEZ.exe takes the longest. Nothing will seem to happen for a while."},
	}
	for i := range targets {
		targets[i].Order = i
	}
	return targets
}

// BackupFiles returns the files to back up before patching: every target
// plus extras, without duplicates.
func BackupFiles(engine semver.Version, extras []string) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		files = append(files, name)
	}
	for _, t := range Targets(engine) {
		add(t.FileName)
	}
	for _, name := range extras {
		add(name)
	}
	return files
}
