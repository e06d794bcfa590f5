package notification

import "fmt"

// EmptyReportError is returned by Compose when there are no lines to send.
type EmptyReportError struct{}

func (e *EmptyReportError) Error() string {
	return "report has no observations"
}

// TransportError wraps a failure reported by a Transport.
type TransportError struct {
	Transport string
	Detail    string
	Timeout   bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s transport timed out: %s", e.Transport, e.Detail)
	}
	return fmt.Sprintf("%s transport failed: %s", e.Transport, e.Detail)
}

func (e *TransportError) Unwrap() error { return e.Err }
