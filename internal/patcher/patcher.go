// Package patcher defines the contract with the tool that rewrites game
// assemblies, plus an adapter that runs such a tool as a child process.
package patcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/logging"
)

// LineLogger receives one line of patcher output at a time.
type LineLogger func(line string)

// Patcher patches a single game file in place.
type Patcher interface {
	Patch(ctx context.Context, path string, log LineLogger) error
}

// Reloader is implemented by patchers that keep a loaded copy of a file, such
// as the game executable and its resolved dependencies. Reload discards that
// copy and reads path again.
type Reloader interface {
	Reload(path string) error
}

// Func adapts a plain function to Patcher.
type Func func(ctx context.Context, path string, log LineLogger) error

func (f Func) Patch(ctx context.Context, path string, log LineLogger) error {
	return f(ctx, path, log)
}

// Exec runs an external patch tool as `Command Args... <file>` from the
// file's directory. Every line the tool writes to stdout or stderr is passed
// to the LineLogger.
type Exec struct {
	Command string
	Args    []string
	// Env is appended to the current environment.
	Env []string
}

func (e *Exec) Patch(ctx context.Context, path string, log LineLogger) error {
	if log == nil {
		log = func(string) {}
	}
	name := filepath.Base(path)
	if e.Command == "" {
		return failure.New(failure.Patch, "patching %s: no patcher command configured", name)
	}

	args := append(append([]string{}, e.Args...), path)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = filepath.Dir(path)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			log(strings.TrimRight(sc.Text(), "\r"))
		}
		// drain so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	logging.Debugf("Verbose: running %s %s\n", e.Command, strings.Join(args, " "))
	err := cmd.Run()
	pw.Close()
	<-done

	if err != nil {
		return failure.Wrap(failure.Patch, fmt.Sprintf("patching %s", name), err)
	}
	return nil
}
