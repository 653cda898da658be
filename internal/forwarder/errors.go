package forwarder

import (
	"errors"
	"fmt"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

// ErrAlreadyStarted is returned by Start on a controller that is not Idle
var ErrAlreadyStarted = errors.New("forwarder already started")

// StartupError reports a fatal failure of the startup sequence.
// State is the last state reached before the failure.
type StartupError struct {
	State forwarder.State
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("forwarder startup failed in state %s: %v", e.State, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
