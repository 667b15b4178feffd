package detector

//State is the lifecycle state of a Controller.
type State int

const (
	StateUninitialized State = iota
	StateLoadingModel
	StateAcquiringCamera
	StateReady
	StateDetecting
	StateIdle
	StateTornDown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadingModel:
		return "loading-model"
	case StateAcquiringCamera:
		return "acquiring-camera"
	case StateReady:
		return "ready"
	case StateDetecting:
		return "detecting"
	case StateIdle:
		return "idle"
	case StateTornDown:
		return "torn-down"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

//Status is the user facing status line of a state.
func (s State) Status() string {
	switch s {
	case StateUninitialized:
		return "Initializing..."
	case StateLoadingModel:
		return "Loading detector..."
	case StateAcquiringCamera:
		return "Starting camera..."
	case StateReady, StateDetecting, StateIdle:
		return "Ready"
	case StateTornDown:
		return "Stopped"
	case StateFailed:
		return "Failed to initialize"
	default:
		return ""
	}
}

//running reports whether the loop may still schedule ticks in this state.
func (s State) running() bool {
	return s == StateReady || s == StateDetecting || s == StateIdle
}

//StateListener is invoked after every transition.
type StateListener func(prev, next State)
