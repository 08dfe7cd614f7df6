package cmd

import (
	"context"

	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/downloader"
	"github.com/caedis/fezmod-installer/internal/game"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/patcher"
	"github.com/caedis/fezmod-installer/internal/pipeline"
	"github.com/caedis/fezmod-installer/internal/platform"
	"github.com/caedis/fezmod-installer/internal/semver"
	"github.com/caedis/fezmod-installer/internal/session"
	"github.com/caedis/fezmod-installer/internal/version"
)

type workflow func(context.Context, *session.Session) error

func newPipeline() *pipeline.Pipeline {
	var p patcher.Patcher
	if patcherCmd != "" {
		p = &patcher.Exec{Command: patcherCmd, Args: patcherArgs}
	}
	return pipeline.New(pipeline.Deps{
		Fetcher:          downloader.New(),
		Patcher:          p,
		InstallerVersion: semver.MustParse(version.Version),
		EngineOverride:   engineVersion,
		NoCache:          noCache,
		BackupExtra:      backupExtra,
		Describe:         platform.Describe,
	})
}

// runWorkflow runs op on a new session for g, showing its events until it
// ends. Only one workflow runs per invocation.
func runWorkflow(ctx context.Context, fsys afero.Fs, g *game.Game, src session.Source, op workflow) error {
	sess := session.New(session.Options{
		Fs:            fsys,
		GameDir:       g.Dir,
		EngineVersion: g.Engine,
		Source:        src,
		Blacklist:     blacklist,
	})
	logging.Debugf("Verbose: session %s game-dir=%q engine=%s\n", sess.ID(), g.Dir, g.Engine)

	pres := newPresenter(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pres.Run(sess.Events())
	}()

	err := op(ctx, sess)
	sess.Close()
	<-done

	if err == nil && sess.Status() != "" {
		logging.Infof("%s %s\n", g.Dir, statusLabel(sess.Status()))
	}
	return err
}
