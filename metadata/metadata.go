// Package metadata implements gRPC's header and trailer codec: parsing and
// emitting the gRPC-specific HTTP/2 pseudo-headers and control headers, and
// isolating the residue as user-defined metadata (§4.1 of the runtime spec).
package metadata

import (
	"encoding/base64"
	"strings"
)

// pair preserves insertion order, which plain map[string][]string cannot.
type pair struct {
	key    string
	values []string
}

// MD is an ordered mapping from lowercase ASCII header name to value(s).
// Keys ending in "-bin" carry base64-encoded binary values on the wire;
// Add/Get/Values here always work in decoded form.
type MD struct {
	pairs []pair
	index map[string]int
}

// New builds an empty MD.
func New() *MD {
	return &MD{index: make(map[string]int)}
}

// isBinHeader reports whether key is a "-bin" suffixed metadata key.
func isBinHeader(key string) bool {
	return strings.HasSuffix(key, "-bin")
}

// Add appends a value for key, preserving prior values under that key.
func (m *MD) Add(key, value string) {
	key = strings.ToLower(key)
	if i, ok := m.index[key]; ok {
		m.pairs[i].values = append(m.pairs[i].values, value)
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, pair{key: key, values: []string{value}})
}

// Get returns the first value for key and whether it was present.
func (m *MD) Get(key string) (string, bool) {
	key = strings.ToLower(key)
	if i, ok := m.index[key]; ok && len(m.pairs[i].values) > 0 {
		return m.pairs[i].values[0], true
	}
	return "", false
}

// Values returns all values for key in insertion order.
func (m *MD) Values(key string) []string {
	key = strings.ToLower(key)
	if i, ok := m.index[key]; ok {
		return m.pairs[i].values
	}
	return nil
}

// Keys returns the metadata keys in insertion order.
func (m *MD) Keys() []string {
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.key
	}
	return keys
}

// Len returns the number of distinct keys.
func (m *MD) Len() int {
	return len(m.pairs)
}

// encodeWireValue base64-encodes value if key is a -bin header, else
// returns it unchanged.
func encodeWireValue(key, value string) string {
	if isBinHeader(key) {
		return base64.StdEncoding.EncodeToString([]byte(value))
	}
	return value
}

// decodeWireValue reverses encodeWireValue.
func decodeWireValue(key, value string) (string, error) {
	if isBinHeader(key) {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			// Some peers omit padding; retry with raw encoding.
			decoded, err = base64.RawStdEncoding.DecodeString(value)
			if err != nil {
				return "", err
			}
		}
		return string(decoded), nil
	}
	return value, nil
}

// AddWire adds a raw wire-form value, applying the -bin decode rule.
func (m *MD) AddWire(key, wireValue string) error {
	decoded, err := decodeWireValue(key, wireValue)
	if err != nil {
		return err
	}
	m.Add(key, decoded)
	return nil
}

// EachWire calls fn once per (key, wireValue) pair in insertion order,
// applying the -bin encode rule. Used by the header emitter.
func (m *MD) EachWire(fn func(key, wireValue string)) {
	for _, p := range m.pairs {
		for _, v := range p.values {
			fn(p.key, encodeWireValue(p.key, v))
		}
	}
}
