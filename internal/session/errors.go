package session

import (
	"errors"
	"fmt"
)

var (
	errNoUsername = errors.New("username required")
	errClosed     = errors.New("session closed")
)

// ConnectError reports a failure to open or authenticate a session. The
// session holds no resources after it is returned.
type ConnectError struct {
	Addr   string
	Reason string
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Reason, e.Err)
	}

	return fmt.Sprintf("connect %s: %s", e.Addr, e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandError reports a failed or timed-out command on an open session.
type CommandError struct {
	Command string
	Timeout bool
	Err     error
}

func (e *CommandError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("command %q timed out", e.Command)
	}

	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a command timeout.
func IsTimeout(err error) bool {
	var cmdErr *CommandError

	return errors.As(err, &cmdErr) && cmdErr.Timeout
}
