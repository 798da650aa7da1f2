// Package registry implements the server-side dispatch table: an explicit
// (service, method) -> descriptor mapping, deliberately not reflective
// name lookup (§4.6, and the runtime spec's DESIGN NOTES on dynamic
// dispatch by name: "keep the registry as an explicit mapping ... Do not
// use reflective name lookup").
package registry

import (
	"fmt"

	"github.com/flowrpc/flowrpc/cardinality"
	"github.com/flowrpc/flowrpc/codec"
)

// MethodDescriptor binds one method name to its cardinality, codecs, a
// request message factory, and handler, per §4.6. There is no response
// factory: the server side gets its response value directly from the
// handler's return, and the client side supplies one per call (see
// client.Channel), so the registry never needs to construct one itself.
type MethodDescriptor struct {
	Name          string
	Kind          cardinality.Kind
	RequestCodec  codec.Codec
	ResponseCodec codec.Codec
	NewRequest    cardinality.MessageFactory

	UnaryHandler        cardinality.UnaryHandler
	ServerStreamHandler cardinality.ServerStreamHandler
	ClientStreamHandler cardinality.ClientStreamHandler
	BidiStreamHandler   cardinality.BidiStreamHandler
}

// ServiceDesc is a service registration: a name and its method
// descriptors, the shape a protoc-gen-go-grpc-style generator would
// produce (§4.6).
type ServiceDesc struct {
	ServiceName string
	Methods     []MethodDescriptor
}

// key uniquely identifies a (service, method) pair.
type key struct {
	service, method string
}

// Registry is the server-side dispatch table.
type Registry struct {
	byKey map[key]*MethodDescriptor
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{byKey: make(map[key]*MethodDescriptor)}
}

// Register adds every method of desc to the table. It returns an error if
// any (service, method) pair is already registered.
func (r *Registry) Register(desc *ServiceDesc) error {
	for i := range desc.Methods {
		m := &desc.Methods[i]
		k := key{desc.ServiceName, m.Name}
		if _, exists := r.byKey[k]; exists {
			return fmt.Errorf("registry: method %s/%s already registered", desc.ServiceName, m.Name)
		}
		r.byKey[k] = m
	}
	return nil
}

// Lookup resolves (service, method) to its descriptor. ok is false on a
// miss, which the Connection Engine maps to UNIMPLEMENTED(12).
func (r *Registry) Lookup(service, method string) (*MethodDescriptor, bool) {
	m, ok := r.byKey[key{service, method}]
	return m, ok
}
