// Package session holds the state of one install, uninstall or cache-clear
// run and carries its log and progress to whoever is presenting it.
package session

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/caedis/fezmod-installer/internal/semver"
	"github.com/caedis/fezmod-installer/internal/versions"
)

// PatchLogName is the patcher log inside the game directory.
const PatchLogName = "FEZModInstallLog.txt"

// FlushDelay is how long log text may wait to be merged with the lines that
// follow it.
const FlushDelay = 100 * time.Millisecond

// DefaultBlacklist seeds every session's blacklist.
var DefaultBlacklist = []string{}

// SourceKind tells where the mod package comes from.
type SourceKind int

const (
	Remote SourceKind = iota
	ManualZip
	ManualFolder
)

// Source is the package picked for an install.
type Source struct {
	Kind    SourceKind
	Channel versions.Channel
	versions.Spec
	// Path is the local zip or folder for manual sources.
	Path string
}

var keySeparators = strings.NewReplacer("/", "_", "\\", "_")

// CacheKey names the cache entry for a remote source. Path separators in the
// label become underscores so the key stays a single file name.
func (s Source) CacheKey() string {
	label := keySeparators.Replace(s.Label)
	if s.Channel == versions.Nightly {
		return "devbuild" + label + ".zip"
	}
	return "stable" + label + ".zip"
}

func (s Source) String() string {
	switch s.Kind {
	case ManualZip:
		return "FEZMod Manual ZIP"
	case ManualFolder:
		return "FEZMod Manual Folder"
	}
	if s.Channel == versions.Nightly {
		return "FEZMod Nightly " + s.Label
	}
	return "FEZMod Stable " + s.Label
}

// Options configures a new session.
type Options struct {
	Fs            afero.Fs
	GameDir       string
	EngineVersion semver.Version
	Source        Source
	// Blacklist extends DefaultBlacklist.
	Blacklist []string
	// FlushDelay overrides the log coalescing delay; zero means FlushDelay.
	FlushDelay time.Duration
}

// Session is the per-run context. It is not shared between runs.
type Session struct {
	id      string
	fs      afero.Fs
	gameDir string
	source  Source
	bus     *bus

	mu         sync.Mutex
	engine     semver.Version
	blacklist  []string
	state      State
	status     string
	transcript strings.Builder
}

// New starts a session. The caller must Close it; a presenter should range
// over Events until the channel is closed.
func New(opts Options) *Session {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	delay := opts.FlushDelay
	if delay == 0 {
		delay = FlushDelay
	}
	s := &Session{
		id:      uuid.NewString(),
		fs:      fsys,
		gameDir: opts.GameDir,
		source:  opts.Source,
		engine:  opts.EngineVersion,
		bus:     newBus(delay),
	}
	s.AddBlacklist(DefaultBlacklist...)
	s.AddBlacklist(opts.Blacklist...)
	return s
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Fs() afero.Fs    { return s.fs }
func (s *Session) GameDir() string { return s.gameDir }
func (s *Session) Source() Source  { return s.source }

// Events returns the channel the session's events are delivered on.
func (s *Session) Events() <-chan Event {
	return s.bus.out
}

// Close flushes pending events and closes the Events channel once they have
// been received.
func (s *Session) Close() {
	s.bus.close()
}

// EngineVersion returns the FEZ version the session installs for.
func (s *Session) EngineVersion() semver.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// SetEngineVersion records a re-detected FEZ version.
func (s *Session) SetEngineVersion(v semver.Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = v
}

// Blacklist returns the file names to remove after extraction.
func (s *Session) Blacklist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.blacklist...)
}

// AddBlacklist adds names that are not yet blacklisted.
func (s *Session) AddBlacklist(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || contains(s.blacklist, name) {
			continue
		}
		s.blacklist = append(s.blacklist, name)
	}
}

// Log appends text to the session log without a line break.
func (s *Session) Log(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.transcript.WriteString(text)
	s.mu.Unlock()
	s.bus.post(Event{Kind: LogEvent, Text: text})
}

// LogLine appends text and a line break.
func (s *Session) LogLine(text string) {
	s.Log(text + "\n")
}

// Logf appends one formatted line.
func (s *Session) Logf(format string, args ...any) {
	s.LogLine(fmt.Sprintf(format, args...))
}

// Transcript returns everything logged so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

func (s *Session) InitProgress(text string, max int) {
	s.bus.post(Event{Kind: ProgressInit, Text: text, Max: max})
}

func (s *Session) SetProgress(text string, value int) {
	s.bus.post(Event{Kind: ProgressSet, Text: text, Value: value})
}

func (s *Session) EndProgress(text string) {
	s.bus.post(Event{Kind: ProgressEnd, Text: text})
}

// SetState records a workflow transition. target names the file being
// patched and is empty for every other state.
func (s *Session) SetState(st State, target string) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.bus.post(Event{Kind: StateEvent, State: st, Target: target})
}

// State returns the last state set.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetStatus records the label the presentation shows next to the game
// directory once the run ends, such as "just installed".
func (s *Session) SetStatus(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = label
}

// Status returns the label set by SetStatus.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// PatchLogPath returns the path of the shared patcher log.
func (s *Session) PatchLogPath() string {
	return filepath.Join(s.gameDir, PatchLogName)
}

// ResetPatchLog deletes the patcher log left by an earlier run.
func (s *Session) ResetPatchLog() error {
	err := s.fs.Remove(s.PatchLogPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", PatchLogName, err)
	}
	return nil
}

// OpenPatchLog opens the patcher log for appending. The caller closes it.
func (s *Session) OpenPatchLog() (io.WriteCloser, error) {
	f, err := s.fs.OpenFile(s.PatchLogPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", PatchLogName, err)
	}
	return f, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
