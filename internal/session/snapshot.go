package session

import (
	"encoding/json"
	"fmt"

	"github.com/jo-hoe/goslide/internal/resource"
)

// PersistedEntry is the durable projection of one collection entry. It
// deliberately excludes the transient handle.
type PersistedEntry struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	Durable     resource.Durable `json:"durable"`
}

// Snapshot is the only externally persisted shape: the playback interval plus
// the durable entries in playback order. The current index is not part of it;
// a restored session always starts stopped at the first frame.
//
// The schema carries no explicit version. encoding/json ignores unknown
// fields on read, so additive changes are backwards compatible; anything else
// needs a migration story at the store key.
type Snapshot struct {
	IntervalMs int              `json:"intervalMs"`
	Entries    []PersistedEntry `json:"entries"`
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &s, nil
}
