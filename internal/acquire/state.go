package acquire

// State is a step of the per-item state machine.
//
//	Pending -> Skipped
//	Pending -> Fetching -> Transcoding -> Tagging -> Recorded
//	Fetching | Transcoding | Tagging -> Failed -> Pending
type State int

const (
	StatePending State = iota
	StateSkipped
	StateFetching
	StateTranscoding
	StateTagging
	StateRecorded
	StateFailed
)

var stateNames = [...]string{
	StatePending:     "pending",
	StateSkipped:     "skipped",
	StateFetching:    "fetching",
	StateTranscoding: "transcoding",
	StateTagging:     "tagging",
	StateRecorded:    "recorded",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateRecorded || s == StateFailed
}
