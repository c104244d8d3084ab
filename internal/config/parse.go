package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse applies nodes in order on top of Default().
//
// A repeated key replaces the earlier value. Any key other than Service,
// Interval and Verbose fails the whole configuration.
func Parse(nodes []Node) (Plugin, error) {
	cfg := Default()
	for _, n := range nodes {
		switch n.Key {
		case KeyService:
			cfg.Services = append([]string(nil), n.Values...)
		case KeyInterval:
			d, err := parseInterval(n.Values)
			if err != nil {
				return Plugin{}, err
			}
			cfg.Interval = d
		case KeyVerbose:
			if len(n.Values) == 0 {
				return Plugin{}, fmt.Errorf("%w: %s requires a value", ErrInvalidValue, KeyVerbose)
			}
			cfg.Verbose = strings.EqualFold(strings.TrimSpace(n.Values[0]), "true")
		default:
			return Plugin{}, fmt.Errorf("%w: %s", ErrUnknownKey, n.Key)
		}
	}
	return cfg, nil
}

func parseInterval(values []string) (time.Duration, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %s requires a value", ErrInvalidValue, KeyInterval)
	}
	raw := strings.TrimSpace(values[0])
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidValue, KeyInterval, raw)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0, fmt.Errorf("%w: %s must be > 0 seconds, got %q", ErrInvalidValue, KeyInterval, raw)
	}
	if secs >= float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("%w: %s %q is too large", ErrInvalidValue, KeyInterval, raw)
	}
	d := time.Duration(secs * float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s %q is below one nanosecond", ErrInvalidValue, KeyInterval, raw)
	}
	return d, nil
}
