package stream

import "fmt"

// ErrStreamState reports local misuse of the RpcStream API — e.g. sending
// after local close, or closing twice. Error kind 2 in §7: the offending
// call fails, the stream itself is not torn down.
type ErrStreamState struct {
	Op    string
	State State
}

func (e *ErrStreamState) Error() string {
	return fmt.Sprintf("stream: illegal operation %q in state %s", e.Op, e.State)
}
