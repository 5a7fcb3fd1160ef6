package recommend

import (
	"errors"
	"fmt"
)

// ErrUpstream matches every UpstreamError via errors.Is.
var ErrUpstream = errors.New("upstream recommendation service failed")

// UpstreamError reports a failed, timed out or unusable call to the language
// model. Its message is shown to the client.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Error getting recommendations: %v", e.Err)
}

func (e *UpstreamError) PublicMessage() string {
	return e.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
