package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Event is one entry in the review audit log. Entries form a hash chain:
// each carries the hash of its predecessor.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	PrevHash  string         `json:"prev_hash,omitempty"`
	Hash      string         `json:"hash,omitempty"`
}

// CalculateHash is a SHA-256 over PrevHash, ID, Timestamp, Action, Actor
// and Metadata. encoding/json sorts map keys, so metadata hashes are stable.
func (e *Event) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(e.Action))
	h.Write([]byte(e.Actor))
	if len(e.Metadata) > 0 {
		meta, _ := json.Marshal(e.Metadata)
		h.Write(meta)
	}
	return hex.EncodeToString(h.Sum(nil))
}
