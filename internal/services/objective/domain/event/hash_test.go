package event

import (
	"testing"
	"time"
)

func TestEventHashIgnoresJournalFields(t *testing.T) {
	evt := Event{
		AggregateID: "obj-1",
		Seq:         1,
		Type:        Type("ObjectiveCreated"),
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		PayloadJSON: []byte(`{"title":"Grow revenue"}`),
	}
	first, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	evt.Hash = "something"
	evt.ChainHash = "else"
	second, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second {
		t.Fatalf("hash changed with journal fields: %s != %s", first, second)
	}
}

func TestEventHashChangesWithSeqAndPayload(t *testing.T) {
	base := Event{AggregateID: "obj-1", Seq: 1, Type: Type("ObjectiveCreated"), PayloadJSON: []byte(`{"title":"A"}`)}
	baseHash, err := EventHash(base)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	moved := base
	moved.Seq = 2
	movedHash, err := EventHash(moved)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if movedHash == baseHash {
		t.Fatal("expected seq to change hash")
	}

	edited := base
	edited.PayloadJSON = []byte(`{"title":"B"}`)
	editedHash, err := EventHash(edited)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if editedHash == baseHash {
		t.Fatal("expected payload to change hash")
	}
}

func TestChainHashDependsOnPredecessor(t *testing.T) {
	evt := Event{AggregateID: "obj-1", Seq: 2, Type: Type("ObjectiveDeleted")}
	first, err := ChainHash(evt, "aaa")
	if err != nil {
		t.Fatalf("chain hash: %v", err)
	}
	second, err := ChainHash(evt, "bbb")
	if err != nil {
		t.Fatalf("chain hash: %v", err)
	}
	if first == second {
		t.Fatal("expected different chain hashes for different predecessors")
	}
}
