package metadata

import "fmt"

// ProtocolError reports that a peer sent non-conforming gRPC headers or
// trailers — error kind 1 in the runtime's error handling design (§7).
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("metadata: protocol error: %s", e.Reason)
}

func protoErrf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
