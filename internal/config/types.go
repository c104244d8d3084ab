package config

import (
	"errors"
	"time"
)

// Recognized keys. Matching is exact (case-sensitive).
const (
	KeyService  = "Service"
	KeyInterval = "Interval"
	KeyVerbose  = "Verbose"
)

const DefaultInterval = 60 * time.Second

var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Node is one entry of the flat key-value configuration list.
// Values keep their textual form; Parse converts them.
type Node struct {
	Key    string
	Values []string
}

// Plugin is the parsed plugin configuration. It is immutable once parsed.
type Plugin struct {
	// Services are name patterns (regular expressions without the
	// ".service" suffix). Empty disables monitoring.
	Services []string
	Interval time.Duration
	Verbose  bool
}

// Default returns the configuration used when a key is absent.
func Default() Plugin {
	return Plugin{Interval: DefaultInterval}
}
