package broker

import "errors"

// Error kinds shared by every broker implementation.
var (
	// ErrTransport indicates a connect/declare/publish/consume/ack
	// failure. Fatal to the current call; the surrounding worker loop
	// dies rather than retrying silently.
	ErrTransport = errors.New("broker: transport error")

	// ErrProtocol indicates a required property was empty, an unknown
	// status was received, or a task/task_id mismatch occurred. Fatal,
	// indicates a configuration bug or a misrouted message.
	ErrProtocol = errors.New("broker: protocol error")

	// ErrDecode indicates a message body was not valid JSON or not an
	// object. Fatal to the current message.
	ErrDecode = errors.New("broker: decode error")

	// ErrJobFailed indicates the user function raised. Converted to a
	// FAILURE envelope by the worker; surfaced as a raised failure by
	// RunJobSync on the client.
	ErrJobFailed = errors.New("broker: job failed")

	// ErrNotImplemented is raised by every admin-surface operation the
	// RabbitMQ broker does not support.
	ErrNotImplemented = errors.New("broker: not implemented")

	// ErrInvalidHandle indicates a handle could not be normalized to a
	// job id by JobIDFromHandle.
	ErrInvalidHandle = errors.New("broker: invalid job handle")
)

// JobError is raised by RunJobSync when the remote job failed. It carries
// the worker-supplied traceback string verbatim.
type JobError struct {
	Traceback string
}

func (e *JobError) Error() string {
	return "job failed: " + e.Traceback
}

func (e *JobError) Unwrap() error {
	return ErrJobFailed
}
