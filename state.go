package vocabmatch

import "fmt"

// State is a step of the database lifecycle.
type State int

const (
	StateIdle State = iota
	StateTreeLoaded
	StateFlattened
	StateWeightsConfigured
	StateDatabaseCleared
	StateDatabasePopulated
	StateWeightsRecomputed
	StateNormalized
	StateQueryReady
)

var stateNames = [...]string{
	StateIdle:              "Idle",
	StateTreeLoaded:        "TreeLoaded",
	StateFlattened:         "Flattened",
	StateWeightsConfigured: "WeightsConfigured",
	StateDatabaseCleared:   "DatabaseCleared",
	StateDatabasePopulated: "DatabasePopulated",
	StateWeightsRecomputed: "WeightsRecomputed",
	StateNormalized:        "Normalized",
	StateQueryReady:        "QueryReady",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
