package reconcile

type State int

const (
	Idle State = iota
	// AwaitingDecode: a subject was scanned and its fetch is outstanding.
	// Decoding keeps running in this state.
	AwaitingDecode
	HasSubject
	Submitting
	// Error is reported through the display and never persists; the
	// controller always falls back to the prior stable state.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingDecode:
		return "awaiting-decode"
	case HasSubject:
		return "has-subject"
	case Submitting:
		return "submitting"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
