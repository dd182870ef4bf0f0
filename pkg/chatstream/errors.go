package chatstream

import "fmt"

// MalformedStreamError reports a frame payload that could not be decoded.
// It aborts the whole stream; the partial answer is discarded.
type MalformedStreamError struct {
	Payload string
	Err     error
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("could not parse stream payload: %v", e.Err)
}

func (e *MalformedStreamError) Unwrap() error {
	return e.Err
}
