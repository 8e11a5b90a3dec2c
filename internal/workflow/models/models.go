// Package models defines the verification workflow domain types. Validation
// lives here as pure functions on the types; persistence concerns stay in the
// store packages.
package models

import (
	"fmt"
	"time"

	dErrors "docproof/pkg/domain-errors"
)

// State is a verification workflow state.
type State string

const (
	StateSubmitted          State = "SUBMITTED"
	StateHashing            State = "HASHING"
	StateAnalyzing          State = "ANALYZING"
	StateAwaitingBlockchain State = "AWAITING_BLOCKCHAIN"
	StateAnchored           State = "ANCHORED"
	StateFailed             State = "FAILED"
	StateRejected           State = "REJECTED"
)

// allowedEdges is the complete transition relation. Terminal states have no
// outgoing edges.
var allowedEdges = map[State]map[State]bool{
	StateSubmitted: {
		StateHashing:  true,
		StateFailed:   true,
		StateRejected: true,
	},
	StateHashing: {
		StateAnalyzing: true,
		StateFailed:    true,
	},
	StateAnalyzing: {
		StateAwaitingBlockchain: true,
		StateFailed:             true,
		StateRejected:           true,
	},
	StateAwaitingBlockchain: {
		StateAnchored: true,
		StateFailed:   true,
	},
	StateAnchored: {},
	StateFailed:   {},
	StateRejected: {},
}

// ParseState validates a raw state string.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if _, ok := allowedEdges[s]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown workflow state %q", raw))
	}
	return s, nil
}

// Terminal reports whether the state has no outgoing transitions.
func (s State) Terminal() bool {
	return len(allowedEdges[s]) == 0
}

// CanTransitionTo reports whether the edge s -> target is allowed.
func (s State) CanTransitionTo(target State) bool {
	return allowedEdges[s][target]
}

// HistoryEntry is one step in a workflow's append-only history.
type HistoryEntry struct {
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// VerificationWorkflow tracks one document through the verification state
// machine. History is append-only and its last entry always matches
// CurrentState; CompletedAt is set exactly when CurrentState is terminal.
type VerificationWorkflow struct {
	ID                   string
	DocumentID           string
	CurrentState         State
	StellarTransactionID string
	ErrorMessage         string
	SubmittedAt          time.Time
	CompletedAt          *time.Time
	History              []HistoryEntry

	// Version supports compare-and-swap updates so concurrent transitions
	// cannot silently overwrite each other.
	Version int64
}

// Clone returns a deep copy so stores can hand out records without aliasing
// the caller's history slice.
func (w *VerificationWorkflow) Clone() *VerificationWorkflow {
	if w == nil {
		return nil
	}
	cp := *w
	cp.History = make([]HistoryEntry, len(w.History))
	copy(cp.History, w.History)
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Apply appends a history entry and moves the workflow to newState,
// maintaining the CompletedAt invariant. It does not check edge validity;
// callers decide that first.
func (w *VerificationWorkflow) Apply(newState State, at time.Time, note string) {
	w.History = append(w.History, HistoryEntry{State: newState, Timestamp: at, Note: note})
	w.CurrentState = newState
	if newState.Terminal() {
		t := at
		w.CompletedAt = &t
	}
}
