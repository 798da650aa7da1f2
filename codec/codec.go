// Package codec defines the pluggable message codec that the runtime is
// parameterized by (§1: "the core is parameterized by a codec"). Protobuf
// is the default, not mandated.
package codec

// Codec encodes and decodes one message type to and from the bytes carried
// in a gRPC message frame's payload.
type Codec interface {
	// Name is the codec identifier (e.g. "proto", "json"). The transports
	// do not read it: requests and responses always carry content-type
	// "application/grpc+proto", whatever the codec.
	Name() string
	Marshal(msg any) ([]byte, error)
	Unmarshal(data []byte, out any) error
}
