package model

import (
	"encoding/json"
	"time"
)

// ChangeEvent is one push notification from the remote catalog. Record holds
// the full updated row of the named table.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// StalenessRecord tracks one cache partition: the remote timestamp last seen
// for it and the wall-clock time of the last remote check.
type StalenessRecord struct {
	LastModified time.Time `json:"last_modified"`
	CheckedAt    time.Time `json:"checked_at"`
}
