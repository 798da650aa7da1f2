package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtoCodec marshals google.golang.org/protobuf messages. It is the
// default codec a generated service descriptor installs.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Marshal(msg any) ([]byte, error) {
	pm, ok := msg.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T does not implement proto.Message", msg)
	}
	return proto.Marshal(pm)
}

func (ProtoCodec) Unmarshal(data []byte, out any) error {
	pm, ok := out.(proto.Message)
	if !ok {
		return fmt.Errorf("codec: %T does not implement proto.Message", out)
	}
	return proto.Unmarshal(data, pm)
}
