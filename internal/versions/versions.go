// Package versions lists the FEZMod releases that can be installed.
package versions

import (
	"context"
	"fmt"
)

// Channel is a release track.
type Channel string

const (
	Stable  Channel = "stable"
	Nightly Channel = "nightly"
)

// Channels lists the known channels in display order.
var Channels = []Channel{Stable, Nightly}

// ParseChannel accepts a channel name as typed on the command line.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case Stable, "":
		return Stable, nil
	case Nightly, "devbuild", "dev":
		return Nightly, nil
	}
	return "", fmt.Errorf("unknown channel %q (want stable or nightly)", s)
}

// Spec is one installable release.
type Spec struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// Source returns the releases of every channel, newest first.
type Source interface {
	Channels(ctx context.Context) (map[Channel][]Spec, error)
}

// Find returns the release labelled label in ch, or the newest one when label
// is empty or "latest".
func Find(all map[Channel][]Spec, ch Channel, label string) (Spec, error) {
	specs := all[ch]
	if len(specs) == 0 {
		return Spec{}, fmt.Errorf("no %s releases available", ch)
	}
	if label == "" || label == "latest" {
		return specs[0], nil
	}
	for _, s := range specs {
		if s.Label == label || "v"+s.Label == label {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("no %s release labelled %q", ch, label)
}
