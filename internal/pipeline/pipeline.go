// Package pipeline runs the install, uninstall and cache-clear workflows:
// back up the game, fetch and unpack FEZMod, drop blacklisted mods and patch
// each game file in a fixed order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/archive"
	"github.com/caedis/fezmod-installer/internal/backup"
	"github.com/caedis/fezmod-installer/internal/cache"
	"github.com/caedis/fezmod-installer/internal/config"
	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/patcher"
	"github.com/caedis/fezmod-installer/internal/platform"
	"github.com/caedis/fezmod-installer/internal/semver"
	"github.com/caedis/fezmod-installer/internal/session"
)

// Deps are the collaborators shared by every workflow.
type Deps struct {
	Fetcher          cache.Fetcher
	Patcher          patcher.Patcher
	InstallerVersion semver.Version
	// Platform is the LIBS/ tag to extract; empty means platform.Current().
	Platform string
	// EngineOverride, when set, is used instead of detecting the FEZ version
	// after an uninstall.
	EngineOverride string
	// NoCache downloads without reading or writing the archive cache.
	NoCache bool
	// BackupExtra names support files backed up along with the targets.
	BackupExtra []string
	// Describe reports host details for the session log; nil skips them.
	Describe func(ctx context.Context) (platform.Info, error)
	Now      func() time.Time
}

// Pipeline runs workflows. It holds no per-run state; one session is passed
// to each call.
type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	if deps.Platform == "" {
		deps.Platform = platform.Current()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}
}

// Install uninstalls any previous FEZMod, backs up the game files, installs
// the session's source and patches every target. A failed target stops the
// run; files patched before it stay patched until the next Uninstall.
func (p *Pipeline) Install(ctx context.Context, sess *session.Session) (err error) {
	defer p.finish(sess, "Install", &err)

	if err := sess.ResetPatchLog(); err != nil {
		return failure.Wrap(failure.Filesystem, "resetting patch log", err)
	}
	sess.Logf("FEZ %s", sess.EngineVersion())
	p.logHost(ctx, sess)

	sess.SetState(session.CleaningPrevious, "")
	if err := p.uninstall(sess); err != nil {
		return err
	}

	engine := sess.EngineVersion()
	sess.SetState(session.BackingUp, "")
	bm := backup.New(sess.Fs(), sess.GameDir())
	for _, name := range BackupFiles(engine, p.deps.BackupExtra) {
		if _, err := bm.Backup(name, sess); err != nil {
			return err
		}
	}

	if err := p.installSource(ctx, sess); err != nil {
		return err
	}

	sess.SetState(session.RemovingBlacklisted, "")
	if err := p.removeBlacklisted(sess); err != nil {
		return err
	}

	if err := p.patchAll(ctx, sess, Targets(engine)); err != nil {
		return err
	}

	if err := p.saveState(sess); err != nil {
		return err
	}
	sess.LogLine("We're done! Feel free to start FEZ.")
	sess.Logf("If FEZ crashes with FEZMod, check %s and the game's own log.", session.PatchLogName)
	sess.SetStatus(config.StatusInstalled)
	return nil
}

// Uninstall restores the backed-up originals and forgets the install state.
func (p *Pipeline) Uninstall(ctx context.Context, sess *session.Session) (err error) {
	defer p.finish(sess, "Uninstall", &err)

	sess.SetState(session.CleaningPrevious, "")
	if err := p.uninstall(sess); err != nil {
		return err
	}
	sess.SetStatus(config.StatusUninstalled)
	return nil
}

// ClearCache deletes every cached archive.
func (p *Pipeline) ClearCache(ctx context.Context, sess *session.Session) (err error) {
	defer p.finish(sess, "Clearing cache", &err)
	return p.store(sess).Clear(sess)
}

// UninstallAndClear uninstalls and then clears the cache, so that the next
// install starts from scratch.
func (p *Pipeline) UninstallAndClear(ctx context.Context, sess *session.Session) (err error) {
	defer p.finish(sess, "Uninstall", &err)

	sess.SetState(session.CleaningPrevious, "")
	if err := p.uninstall(sess); err != nil {
		return err
	}
	if err := p.store(sess).Clear(sess); err != nil {
		return err
	}
	sess.SetStatus(config.StatusUninstalled)
	return nil
}

// finish is deferred by every workflow: it reports the outcome in the session
// log and moves the session to its terminal state.
func (p *Pipeline) finish(sess *session.Session, op string, errp *error) {
	if *errp == nil {
		sess.SetState(session.Done, "")
		return
	}
	err := *errp
	sess.LogLine("")
	sess.Logf("%s failed: %v", op, err)
	if kind := failure.KindOf(err); kind != 0 {
		sess.Logf("Error kind: %s", kind)
	}
	sess.SetState(session.Failed, "")
	logging.Debugf("Verbose: session %s failed: %v\n", sess.ID(), err)
}

func (p *Pipeline) logHost(ctx context.Context, sess *session.Session) {
	if p.deps.Describe == nil {
		return
	}
	info, err := p.deps.Describe(ctx)
	if err != nil {
		logging.Debugf("Verbose: host detection failed: %v\n", err)
		return
	}
	sess.Logf("Host: %s", info)
}

func (p *Pipeline) store(sess *session.Session) *cache.Store {
	return cache.New(sess.Fs(), filepath.Join(sess.GameDir(), cache.DirName), p.deps.Fetcher)
}

func (p *Pipeline) uninstall(sess *session.Session) error {
	fsys := sess.Fs()
	dir := sess.GameDir()
	bm := backup.New(fsys, dir)
	if !bm.Exists() {
		return nil
	}

	state, err := config.Load(fsys, dir)
	if err == nil && state.Label != "" {
		sess.Logf("Found previous FEZMod installation: %s", state.Label)
		sess.LogLine("Reverting to non-FEZMod backup...")
	} else {
		sess.LogLine("No previous FEZMod installation found.")
		sess.LogLine("Still reverting to non-FEZMod backup...")
	}

	exe := filepath.Join(dir, game.ExeName)
	_, err = bm.Uninstall(sess, func() error {
		sess.Logf("Reloading %s", game.ExeName)
		engine, err := game.DetectEngine(fsys, dir, p.deps.EngineOverride)
		if err != nil {
			return fmt.Errorf("re-detecting FEZ version: %w", err)
		}
		sess.SetEngineVersion(engine)
		if r, ok := p.deps.Patcher.(patcher.Reloader); ok {
			if err := r.Reload(exe); err != nil {
				return failure.Wrap(failure.Patch, "reloading "+game.ExeName, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := config.Remove(fsys, dir); err != nil {
		return failure.Wrap(failure.Filesystem, "removing install state", err)
	}
	return nil
}

func (p *Pipeline) extractor(sess *session.Session) *archive.Extractor {
	return &archive.Extractor{
		Fs:               sess.Fs(),
		Dir:              sess.GameDir(),
		InstallerVersion: p.deps.InstallerVersion,
		EngineVersion:    sess.EngineVersion(),
		Platform:         p.deps.Platform,
	}
}

func (p *Pipeline) installSource(ctx context.Context, sess *session.Session) error {
	src := sess.Source()
	sess.LogLine(src.String())
	ex := p.extractor(sess)

	switch src.Kind {
	case session.ManualFolder:
		sess.SetState(session.Extracting, "")
		_, err := ex.CopyFolder(src.Path, sess)
		return err

	case session.ManualZip:
		data, err := afero.ReadFile(sess.Fs(), src.Path)
		if err != nil {
			return failure.Wrap(failure.Filesystem, "reading "+src.Path, err)
		}
		return p.extract(sess, ex, data)
	}

	data, err := p.download(ctx, sess, src)
	if err != nil {
		return err
	}
	return p.extract(sess, ex, data)
}

func (p *Pipeline) download(ctx context.Context, sess *session.Session, src session.Source) ([]byte, error) {
	if src.URL == "" {
		return nil, failure.New(failure.Network, "no download URL for %s", src)
	}
	if p.deps.Fetcher == nil {
		return nil, failure.New(failure.Network, "no downloader configured")
	}
	if p.deps.NoCache {
		sess.SetState(session.Downloading, "")
		return p.deps.Fetcher.Fetch(ctx, src.URL, sess)
	}

	store := p.store(sess)
	key := src.CacheKey()
	data, err := store.Read(key, sess)
	if err != nil {
		return nil, err
	}
	if data != nil {
		sess.SetState(session.Cached, "")
		return data, nil
	}

	sess.SetState(session.Downloading, "")
	data, _, err = store.GetOrFetch(ctx, key, src.URL, sess)
	return data, err
}

func (p *Pipeline) extract(sess *session.Session, ex *archive.Extractor, data []byte) error {
	sess.SetState(session.Extracting, "")
	res, err := ex.Install(data, sess)
	if err != nil {
		return err
	}
	sess.AddBlacklist(res.Blacklist...)
	return nil
}

func (p *Pipeline) removeBlacklisted(sess *session.Session) error {
	list := sess.Blacklist()
	if len(list) == 0 {
		return nil
	}
	for _, name := range list {
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return failure.New(failure.Filesystem, "invalid blacklist entry %q: must be a file name in the game directory", name)
		}
	}

	sess.LogLine("")
	sess.Logf("%d mods on the blacklist - removing them!", len(list))
	for _, name := range list {
		path := filepath.Join(sess.GameDir(), name)
		err := sess.Fs().Remove(path)
		switch {
		case err == nil:
			sess.Logf("%s blacklisted - removed.", name)
		case errors.Is(err, fs.ErrNotExist):
			sess.Logf("%s blacklisted - not found.", name)
		default:
			return failure.Wrap(failure.Filesystem, "removing blacklisted "+name, err)
		}
	}
	sess.LogLine("")
	return nil
}

func (p *Pipeline) patchAll(ctx context.Context, sess *session.Session, targets []Target) error {
	if p.deps.Patcher == nil {
		return failure.New(failure.Patch, "no patcher configured")
	}

	sess.LogLine("")
	sess.LogLine("Now comes the real patching process. It can take a while without")
	sess.LogLine("visible progress; it is not stuck. If it fails, the error appears here")
	sess.Logf("and the patcher's own output is in %s.", session.PatchLogName)
	sess.LogLine("")

	sess.InitProgress("Modding "+targets[0].FileName, len(targets))
	for _, t := range targets {
		sess.SetState(session.Patching, t.FileName)
		sess.Logf("Modding %s", t.FileName)
		sess.SetProgress("Modding "+t.FileName, t.Order)
		if t.Blurb != "" {
			sess.LogLine(t.Blurb)
		}
		sess.LogLine("")

		if err := p.patchOne(ctx, sess, t); err != nil {
			sess.LogLine(err.Error())
			return err
		}
	}
	sess.EndProgress("Modding complete.")
	return nil
}

func (p *Pipeline) patchOne(ctx context.Context, sess *session.Session, t Target) error {
	path := filepath.Join(sess.GameDir(), t.FileName)

	// The executable may still reference the dependencies as they were
	// before patching.
	if t.Role == Executable {
		if r, ok := p.deps.Patcher.(patcher.Reloader); ok {
			if err := r.Reload(path); err != nil {
				return failure.Wrap(failure.Patch, "reloading "+t.FileName, err)
			}
		}
	}

	w, err := sess.OpenPatchLog()
	if err != nil {
		return failure.Wrap(failure.Filesystem, "opening patch log", err)
	}
	defer w.Close()

	err = p.deps.Patcher.Patch(ctx, path, func(line string) {
		fmt.Fprintln(w, strings.TrimRight(line, "\r\n"))
	})
	if err != nil {
		if failure.KindOf(err) == 0 {
			err = failure.Wrap(failure.Patch, "patching "+t.FileName, err)
		}
		return err
	}
	return nil
}

func (p *Pipeline) saveState(sess *session.Session) error {
	src := sess.Source()
	state := &config.InstallState{
		Label:            src.Label,
		Source:           src.String(),
		Channel:          string(src.Channel),
		URL:              src.URL,
		EngineVersion:    sess.EngineVersion().String(),
		InstallerVersion: p.deps.InstallerVersion.String(),
		InstalledAt:      p.deps.Now().UTC(),
		Status:           config.StatusInstalled,
		Blacklisted:      sess.Blacklist(),
	}
	if src.Kind != session.Remote {
		state.Label = filepath.Base(src.Path)
		state.Channel = ""
	}
	if err := state.Save(sess.Fs(), sess.GameDir()); err != nil {
		return failure.Wrap(failure.Filesystem, "saving install state", err)
	}
	return nil
}
