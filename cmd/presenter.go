package cmd

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/session"
)

// presenter renders session events on the terminal: log text through the
// logging package, progress as a bar on barOut, and state changes as colored
// labels.
type presenter struct {
	barOut io.Writer
	bar    *progressbar.ProgressBar
	last   session.State
}

func newPresenter(barOut io.Writer) *presenter {
	if barOut == nil {
		barOut = os.Stderr
	}
	return &presenter{barOut: barOut}
}

// Run handles events until the channel is closed.
func (p *presenter) Run(events <-chan session.Event) {
	for ev := range events {
		p.handle(ev)
	}
	p.finishBar()
}

func (p *presenter) handle(ev session.Event) {
	switch ev.Kind {
	case session.LogEvent:
		if p.bar != nil {
			_ = p.bar.Clear()
		}
		logging.Infof("%s", ev.Text)

	case session.ProgressInit:
		p.finishBar()
		total := ev.Max
		if total < 1 {
			total = 1
		}
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.barOut),
			progressbar.OptionSetDescription(ev.Text),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)

	case session.ProgressSet:
		if p.bar == nil {
			return
		}
		p.bar.Describe(ev.Text)
		_ = p.bar.Set(ev.Value)

	case session.ProgressEnd:
		p.finishBar()
		logging.Debugf("Verbose: %s\n", ev.Text)

	case session.StateEvent:
		p.last = ev.State
		switch {
		case ev.State == session.Patching:
			logging.Debugf("Verbose: %s %s\n", stateLabel(ev.State), ev.Target)
		case ev.State.Terminal():
			logging.Infof("%s\n", stateLabel(ev.State))
		default:
			logging.Debugf("Verbose: %s\n", stateLabel(ev.State))
		}
	}
}

func (p *presenter) finishBar() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func stateLabel(st session.State) string {
	text := "[" + st.String() + "]"
	switch st {
	case session.Done:
		return color.New(color.FgGreen, color.Bold).Sprint(text)
	case session.Failed:
		return color.New(color.FgRed, color.Bold).Sprint(text)
	case session.Patching:
		return color.YellowString(text)
	default:
		return color.CyanString(text)
	}
}

func statusLabel(status string) string {
	if status == "" {
		return ""
	}
	return color.GreenString("[" + status + "]")
}
