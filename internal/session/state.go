package session

// State is a step of an install, uninstall or cache-clear workflow.
type State int

const (
	Idle State = iota
	CleaningPrevious
	BackingUp
	Downloading
	Cached
	Extracting
	RemovingBlacklisted
	Patching
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                "idle",
	CleaningPrevious:    "cleaning previous install",
	BackingUp:           "backing up",
	Downloading:         "downloading",
	Cached:              "using cache",
	Extracting:          "extracting",
	RemovingBlacklisted: "removing blacklisted mods",
	Patching:            "patching",
	Done:                "done",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
