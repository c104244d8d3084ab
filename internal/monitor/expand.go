package monitor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sm "systemdstat/pkg/systemdmanager"
)

// Expand turns name patterns into base service names using the unit inventory.
//
// Each pattern is used as a raw regular expression anchored as
// ^<pattern>\.service$; it is not escaped, so "." and ".*" behave as regex
// operators. Results follow pattern order, then inventory order, and are not
// de-duplicated when patterns overlap.
func Expand(patterns []string, inventory []sm.UnitEntry) ([]string, error) {
	out := []string{}
	for _, p := range patterns {
		re, err := regexp.Compile("^" + p + regexp.QuoteMeta(ServiceSuffix) + "$")
		if err != nil {
			return nil, fmt.Errorf("invalid service pattern %q: %w", p, err)
		}
		for _, u := range inventory {
			if re.MatchString(u.Name) {
				out = append(out, strings.TrimSuffix(u.Name, ServiceSuffix))
			}
		}
	}
	return out, nil
}

// Discover lists the inventory once and expands patterns against it.
func Discover(ctx context.Context, inv Inventory, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{}, nil
	}
	units, err := inv.ListUnitsContext(ctx)
	if err != nil {
		return nil, err
	}
	return Expand(patterns, units)
}
