package dial

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrNoMessages        = errors.New("at least one message is required")
	ErrStreamInterrupted = errors.New("stream interrupted")
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 64 * 1024

// StatusError is returned when the gateway answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// StreamError reports a stream that stopped before the [DONE] sentinel.
// The message returned alongside it holds the text received so far.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStreamInterrupted, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func (e *StreamError) Is(target error) bool {
	return target == ErrStreamInterrupted
}

// HandlerError wraps a failure returned by a StreamHandler. The stream is
// abandoned and the message returned alongside it holds the text so far.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("stream handler: %v", e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func readStatusError(body io.Reader, status int) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return &StatusError{StatusCode: status, Body: string(data)}
}

// diagnostic renders err the way the never-fail operations report it.
func diagnostic(prefix string, err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
