// Package report defines how long-running installer steps surface log lines
// and progress without knowing who is listening.
package report

// Reporter receives log lines and progress updates from a running step.
// Logf writes one complete line; the newline is added by the implementation.
type Reporter interface {
	Logf(format string, args ...any)
	InitProgress(text string, max int)
	SetProgress(text string, value int)
	EndProgress(text string)
}

// Discard drops everything. Useful for tests and headless callers.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Logf(string, ...any) {}
func (discard) InitProgress(string, int) {}
func (discard) SetProgress(string, int) {}
func (discard) EndProgress(string) {}
