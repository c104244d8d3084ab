package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file, one record per line
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one stored gauge reading.
// Keep it compact and schema-stable.
type Record struct {
	At       time.Time `json:"at"`
	Plugin   string    `json:"plugin"`
	Instance string    `json:"plugin_instance"`
	Type     string    `json:"type"`
	TypeInst string    `json:"type_instance"`
	Value    float64   `json:"value"`
}
