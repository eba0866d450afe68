package island

// Phase represents the current lifecycle phase of an island, driven by the
// bridge: Undiscovered → Mounting → Mounted → Unmounting → Unmounted.
// A failed mount falls back to Undiscovered so a later independent scan
// may retry it.
type Phase int

const (
	// PhaseUndiscovered indicates no mount is recorded for the island
	PhaseUndiscovered Phase = iota
	// PhaseMounting indicates a component load is in flight
	PhaseMounting
	// PhaseMounted indicates the island is live and receiving messages
	PhaseMounted
	// PhaseUnmounting indicates teardown has begun
	PhaseUnmounting
	// PhaseUnmounted indicates teardown completed
	PhaseUnmounted
)

// String returns a string representation of the island phase
func (p Phase) String() string {
	switch p {
	case PhaseUndiscovered:
		return "undiscovered"
	case PhaseMounting:
		return "mounting"
	case PhaseMounted:
		return "mounted"
	case PhaseUnmounting:
		return "unmounting"
	case PhaseUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}
