package systemdmanager

import "errors"

const (
	systemdDest   = "org.freedesktop.systemd1"
	systemdPath   = "/org/freedesktop/systemd1"
	managerIface  = "org.freedesktop.systemd1.Manager"
	propertiesGet = "org.freedesktop.DBus.Properties.Get"
	UnitIface     = "org.freedesktop.systemd1.Unit"
	ServiceIface  = "org.freedesktop.systemd1.Service"
	ServiceSuffix = ".service"
)

var (
	ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")
	ErrClosed      = errors.New("systemd connection is closed")
	ErrNoSuchUnit  = errors.New("no such unit")
)

// Options selects which bus to talk to.
type Options struct {
	// User connects to the calling user's systemd instance instead of PID 1.
	User bool
}

// UnitEntry is one row of the manager's unit listing.
type UnitEntry struct {
	Name        string
	Description string
}
