package controlmode

import "errors"

// Error taxonomy. Callers check these with errors.Is/errors.As.
var (
	ErrNotRunning    = errors.New("controlmode: client not running")
	ErrSpawnFailed   = errors.New("controlmode: failed to spawn child process")
	ErrIOFailed      = errors.New("controlmode: stdin/stdout I/O failed")
	ErrTimeout       = errors.New("controlmode: command timed out")
	ErrMuxAbsent     = errors.New("controlmode: multiplexer binary not found")
	ErrCaptureFailed = errors.New("controlmode: capture command failed")
	ErrSendFailed    = errors.New("controlmode: send command failed")
)

// CommandError wraps a %error response from the multiplexer, carrying the
// message text it reported.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return "controlmode: command failed: " + e.Command + ": " + e.Message
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// ErrCommandFailed is the sentinel matched by CommandError.Is, so callers can
// write errors.Is(err, ErrCommandFailed) without a type assertion.
var ErrCommandFailed = errors.New("controlmode: command failed")
