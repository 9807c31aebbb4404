package payment

import "fmt"

// Status is the lifecycle state of a payment.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusPending
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether no payment action is possible anymore. The
// only thing left to do is closing the session.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPending
}

// CanTransition reports whether the state machine allows moving from s to
// next. Staying in the same state is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}

	switch s {
	case StatusIdle:
		// A missing amount fails before anything is sent.
		return next == StatusLoading || next == StatusError

	case StatusLoading:
		return next == StatusSuccess || next == StatusPending ||
			next == StatusError

	case StatusError:
		return next == StatusIdle || next == StatusLoading

	case StatusSuccess, StatusPending:
		return false

	default:
		return false
	}
}

// Notification categorises the signal emitted when a payment settles into
// a result state.
type Notification int

const (
	NotificationSuccess Notification = iota
	NotificationFailure
)

func (n Notification) String() string {
	if n == NotificationSuccess {
		return "success"
	}

	return "failure"
}

// notification returns the signal for entering s, if any.
func notification(s Status) (Notification, bool) {
	switch s {
	case StatusSuccess:
		return NotificationSuccess, true

	case StatusPending, StatusError:
		return NotificationFailure, true

	default:
		return 0, false
	}
}
