package install

// State is the position of one version in its install run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateVerifying
	StateExtracting
	StateFixingPermissions
	StateActivated
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateVerifying:
		return "verifying"
	case StateExtracting:
		return "extracting"
	case StateFixingPermissions:
		return "fixing-permissions"
	case StateActivated:
		return "activated"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateActivated || s == StateFailed || s == StateCancelled
}
