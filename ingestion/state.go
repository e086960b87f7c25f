package ingestion

// State identifies a stage of a single book's ingestion run.
type State int

const (
	StateNew State = iota
	StateResolving
	StateSkipped
	StateFetching
	StateExtracting
	StateChunking
	StateEmbedding
	StatePersisting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateNew:        "new",
	StateResolving:  "resolving",
	StateSkipped:    "skipped",
	StateFetching:   "fetching",
	StateExtracting: "extracting",
	StateChunking:   "chunking",
	StateEmbedding:  "embedding",
	StatePersisting: "persisting",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state ends a run. StateSkipped counts as
// terminal success.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateDone || s == StateFailed
}
