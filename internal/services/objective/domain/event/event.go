package event

import "time"

// Type identifies the event type string.
type Type string

// Event is the journal envelope for one objective fact.
//
// Seq and the hash fields are assigned by the journal on append; deciders leave
// them empty.
type Event struct {
	AggregateID   string
	Seq           uint64
	Type          Type
	Timestamp     time.Time
	ActorID       string
	RequestID     string
	CorrelationID string
	CausationID   string
	PayloadJSON   []byte

	Hash      string
	PrevHash  string
	ChainHash string
}
