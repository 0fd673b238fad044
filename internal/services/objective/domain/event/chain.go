package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrChainBroken indicates a stored stream whose sequence or hashes do not
// match what the journal would have written.
var ErrChainBroken = errors.New("event chain broken")

// Seal assigns the content hash, previous chain hash and chain hash to an
// event whose Seq is already set. Timestamps are truncated to milliseconds,
// the precision the journal keeps.
func Seal(evt Event, prevChainHash string) (Event, error) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	hash, err := EventHash(evt)
	if err != nil {
		return Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	chainHash, err := ChainHash(evt, prevChainHash)
	if err != nil {
		return Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.PrevHash = prevChainHash
	evt.ChainHash = chainHash
	return evt, nil
}

// ChainVerifier checks one aggregate's stream, event by event, in order.
type ChainVerifier struct {
	lastSeq  uint64
	prevHash string
}

// Check verifies evt against the events already checked.
func (v *ChainVerifier) Check(evt Event) error {
	if evt.Seq != v.lastSeq+1 {
		return fmt.Errorf("%w: aggregate_id=%s expected seq %d got %d", ErrChainBroken, evt.AggregateID, v.lastSeq+1, evt.Seq)
	}
	if evt.PrevHash != v.prevHash {
		return fmt.Errorf("%w: prev hash mismatch aggregate_id=%s seq=%d", ErrChainBroken, evt.AggregateID, evt.Seq)
	}
	hash, err := EventHash(evt)
	if err != nil {
		return fmt.Errorf("compute event hash aggregate_id=%s seq=%d: %w", evt.AggregateID, evt.Seq, err)
	}
	if hash != evt.Hash {
		return fmt.Errorf("%w: event hash mismatch aggregate_id=%s seq=%d", ErrChainBroken, evt.AggregateID, evt.Seq)
	}
	chainHash, err := ChainHash(evt, v.prevHash)
	if err != nil {
		return fmt.Errorf("compute chain hash aggregate_id=%s seq=%d: %w", evt.AggregateID, evt.Seq, err)
	}
	if chainHash != evt.ChainHash {
		return fmt.Errorf("%w: chain hash mismatch aggregate_id=%s seq=%d", ErrChainBroken, evt.AggregateID, evt.Seq)
	}
	v.lastSeq = evt.Seq
	v.prevHash = evt.ChainHash
	return nil
}

// LastSeq returns the sequence of the last verified event.
func (v *ChainVerifier) LastSeq() uint64 {
	return v.lastSeq
}
