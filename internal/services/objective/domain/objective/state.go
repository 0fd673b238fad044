package objective

import "maps"

const (
	// DefaultTitle names an objective created without a title.
	DefaultTitle = "New Objective"
	// DefaultKeyResultTitle names a key result added without a title.
	DefaultKeyResultTitle = "New key"
)

// State captures the replayed objective used by Decide.
type State struct {
	// Created indicates ObjectiveCreated has been applied.
	Created     bool
	AggregateID string
	Title       string
	Period      string
	// UserID and OrgUnitID are the owner link; exactly one is set at creation
	// and no event changes it afterwards.
	UserID    string
	OrgUnitID string
	Deleted   bool
	// KeyResults is keyed by the caller-supplied key result id.
	KeyResults map[string]KeyResultState
}

// KeyResultState is the minimal per key result record needed for validation.
type KeyResultState struct {
	Title    string
	Progress int
	Deleted  bool
}

// KeyResult returns the key result with id, if present.
func (s State) KeyResult(id string) (KeyResultState, bool) {
	kr, ok := s.KeyResults[id]
	return kr, ok
}

// Clone returns a copy that shares no maps with s.
func (s State) Clone() State {
	if s.KeyResults != nil {
		s.KeyResults = maps.Clone(s.KeyResults)
	}
	return s
}
