package console

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is on the typed errors below.
var (
	// ErrEngineInit reports that the output context could not be acquired.
	ErrEngineInit = errors.New("console: engine initialization failed")

	// ErrNotReady reports an operation before Initialize completed or after Disconnect.
	ErrNotReady = errors.New("console: engine not ready")

	// ErrDuplicateChannel reports a channel id collision.
	ErrDuplicateChannel = errors.New("console: duplicate channel id")

	// ErrNotFound reports an unknown channel, send or bus id.
	ErrNotFound = errors.New("console: not found")

	// ErrEffectMismatch reports effect parameters of the wrong kind for a bus.
	ErrEffectMismatch = errors.New("console: effect type mismatch")

	// ErrInvalidArgument reports an argument no clamp can repair, such as an
	// unknown EQ band or a nil source.
	ErrInvalidArgument = errors.New("console: invalid argument")
)

// EngineInitError wraps the platform failure that stopped Initialize.
// The engine returns to Uninitialized, so Initialize may be retried.
type EngineInitError struct {
	Cause error
}

func (e *EngineInitError) Error() string {
	if e.Cause == nil {
		return ErrEngineInit.Error()
	}
	return fmt.Sprintf("%s: %v", ErrEngineInit, e.Cause)
}

// Unwrap exposes both the sentinel and the cause.
func (e *EngineInitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrEngineInit}
	}
	return []error{ErrEngineInit, e.Cause}
}

// NotReadyError is returned by every operation that requires the Ready state.
type NotReadyError struct {
	Op    string
	State State
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s in state %s", ErrNotReady, e.Op, e.State)
}

// Is matches ErrNotReady.
func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// DuplicateChannelError is returned when a channel id is already in use.
type DuplicateChannelError struct {
	ID string
}

func (e *DuplicateChannelError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateChannel, e.ID)
}

// Is matches ErrDuplicateChannel.
func (e *DuplicateChannelError) Is(target error) bool { return target == ErrDuplicateChannel }

// Kinds of entities reported by NotFoundError.
const (
	KindChannel = "channel"
	KindSend    = "send"
	KindBus     = "bus"
)

// NotFoundError names the missing entity. Err carries an optional reason
// such as ErrEffectMismatch.
type NotFoundError struct {
	Kind string
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %q: %v", ErrNotFound, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s %q", ErrNotFound, e.Kind, e.ID)
}

// Unwrap exposes the sentinel and the optional reason.
func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// InvalidArgumentError names the rejected argument of Op.
type InvalidArgumentError struct {
	Op    string
	Arg   string
	Value any
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s %s %v", ErrInvalidArgument, e.Op, e.Arg, e.Value)
}

// Is matches ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
