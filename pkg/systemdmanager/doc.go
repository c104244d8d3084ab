// Package systemdmanager talks to systemd's manager object over D-Bus.
//
// It exposes only what the monitor needs: resolving a unit name to its object
// (GetUnit), listing loaded units, and reading single properties off a unit
// object. On non-linux builds every call returns ErrUnsupported.
package systemdmanager
