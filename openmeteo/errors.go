package openmeteo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is wrapped by an UpstreamError when the body cannot be
// decoded or lacks the requested block.
var ErrMalformedResponse = errors.New("malformed response")

// UpstreamError reports a failed call to the Open-Meteo API.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("open-meteo")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
