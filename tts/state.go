package tts

// JobState is the lifecycle state of a narration job.
type JobState int

const (
	// StateQueued indicates the job waits in the narration queue.
	StateQueued JobState = iota
	// StateTransforming indicates tone analysis and formatting are running.
	StateTransforming
	// StateSynthesizing indicates the synthesis call is outstanding.
	StateSynthesizing
	// StateDone indicates the job produced audio or was split into sub-jobs.
	StateDone
	// StateAborted indicates the job was dropped without audio.
	StateAborted
)

// String returns the string representation of the state.
func (s JobState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateTransforming:
		return "transforming"
	case StateSynthesizing:
		return "synthesizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IsActive returns true while the job occupies the single-flight slot.
func (s JobState) IsActive() bool {
	return s == StateTransforming || s == StateSynthesizing
}

// IsTerminal returns true once the job can no longer change.
func (s JobState) IsTerminal() bool {
	return s == StateDone || s == StateAborted
}

// StateMachine guards the transitions of a single narration job.
type StateMachine struct {
	current     JobState
	transitions map[JobState][]JobState
}

// NewStateMachine creates a state machine starting in StateQueued.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateQueued,
		transitions: map[JobState][]JobState{
			StateQueued:       {StateTransforming, StateAborted},
			StateTransforming: {StateSynthesizing, StateDone, StateAborted},
			StateSynthesizing: {StateDone, StateAborted},
		},
	}
}

// Transition attempts to move to the specified state.
func (sm *StateMachine) Transition(to JobState) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() JobState {
	return sm.current
}
