package app

// StopReason records why the app is shutting down. It is only logged.
type StopReason int

const (
	StopUnknown StopReason = iota
	StopSIGINT
	StopSIGTERM
	StopFatalError
	StopAppStop
)

func (r StopReason) String() string {
	switch r {
	case StopSIGINT:
		return "sigint"
	case StopSIGTERM:
		return "sigterm"
	case StopFatalError:
		return "fatal_error"
	case StopAppStop:
		return "app_stop"
	default:
		return "unknown"
	}
}
