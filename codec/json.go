package codec

import "encoding/json"

// JSONCodec marshals messages with encoding/json. It exists for services
// whose message types are plain Go structs rather than generated
// protobuf messages (the bundled Greeter demo uses it); production
// services register ProtoCodec. No pack dependency offers a JSON wire
// codec, so this one stays on the standard library.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
