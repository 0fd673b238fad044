package event

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/okr/internal/services/objective/domain/core/encoding"
)

// EventHash computes the content hash of an event envelope.
//
// The journal-assigned hash fields are excluded; Seq is included so two
// identical payloads at different positions never share a hash.
func EventHash(evt Event) (string, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return encoding.ContentHash(map[string]any{
		"aggregate_id":   evt.AggregateID,
		"seq":            evt.Seq,
		"event_type":     string(evt.Type),
		"timestamp":      evt.Timestamp.UTC().Format(time.RFC3339Nano),
		"actor_id":       evt.ActorID,
		"request_id":     evt.RequestID,
		"correlation_id": evt.CorrelationID,
		"causation_id":   evt.CausationID,
		"payload":        json.RawMessage(payload),
	})
}

// ChainHash links an event hash to the chain hash of its predecessor.
func ChainHash(evt Event, prevChainHash string) (string, error) {
	hash := evt.Hash
	if hash == "" {
		computed, err := EventHash(evt)
		if err != nil {
			return "", err
		}
		hash = computed
	}
	return encoding.ContentHash(map[string]string{
		"event_hash": hash,
		"prev_hash":  prevChainHash,
	})
}
