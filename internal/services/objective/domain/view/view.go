package view

import (
	"encoding/json"
	"fmt"
)

// View is the queryable snapshot of one objective.
//
// Deleted flags use the historical "isDeleted" key and are omitted when false,
// so an absent key and false decode to the same value.
type View struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId,omitempty"`
	OrgUnitID  string      `json:"orgUnitId,omitempty"`
	Title      string      `json:"title"`
	Period     string      `json:"period,omitempty"`
	KeyResults []KeyResult `json:"keyResults"`
	Deleted    bool        `json:"isDeleted,omitempty"`
	Progress   int         `json:"progress"`
}

// KeyResult is one entry of View.KeyResults, kept in insertion order.
type KeyResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
	Deleted  bool   `json:"isDeleted,omitempty"`
}

// Exists reports whether ObjectiveCreated has been applied.
func (v View) Exists() bool {
	return v.ID != ""
}

// KeyResult returns the key result with id, if present.
func (v View) KeyResult(id string) (KeyResult, bool) {
	for _, kr := range v.KeyResults {
		if kr.ID == id {
			return kr, true
		}
	}
	return KeyResult{}, false
}

// Encode serializes a snapshot for storage or transport.
func Encode(v View) ([]byte, error) {
	if v.KeyResults == nil {
		v.KeyResults = []KeyResult{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode. Empty input yields the zero View.
func Decode(data []byte) (View, error) {
	if len(data) == 0 {
		return View{}, nil
	}
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return View{}, fmt.Errorf("decode view: %w", err)
	}
	return v, nil
}
