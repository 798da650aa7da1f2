package metadata

import (
	"strconv"
	"strings"
	"time"
)

// Field is one HTTP/2 header or trailer entry on the wire, pseudo-headers
// included (e.g. {":method", "POST"}). Representing headers as an ordered
// field list rather than net/http's map keeps this codec independent of
// any particular HTTP/2 library, per §1's "core consumes an HTTP/2
// connection object" boundary.
type Field struct {
	Name  string
	Value string
}

// FieldList is an ordered set of header/trailer fields.
type FieldList []Field

func (fl FieldList) get(name string) (string, bool) {
	for _, f := range fl {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

const contentTypePrefix = "application/grpc"

// RequestHeaders is the parsed, destructively-extracted form of a gRPC
// request's HTTP/2 headers (§4.1).
type RequestHeaders struct {
	Scheme                string
	Service               string
	Method                string
	Authority             string
	Timeout               *time.Duration
	Encoding              string
	AcceptEncoding        []string
	UserAgent             string
	MessageType           string
	Custom                *MD
}

// isReservedName reports whether name is a pseudo-header or gRPC control
// header, which never surfaces as user custom metadata.
func isReservedName(name string) bool {
	switch name {
	case ":method", ":scheme", ":path", ":authority", ":status",
		"te", "content-type", "user-agent":
		return true
	}
	return strings.HasPrefix(name, "grpc-")
}

// ParseRequestHeaders destructively parses a request header field list,
// per spec.md §4.1.
func ParseRequestHeaders(fl FieldList) (*RequestHeaders, error) {
	method, _ := fl.get(":method")
	if method != "POST" {
		return nil, protoErrf("unsupported method %q", method)
	}
	scheme, _ := fl.get(":scheme")
	if scheme != "http" && scheme != "https" {
		return nil, protoErrf("unsupported scheme %q", scheme)
	}
	path, ok := fl.get(":path")
	if !ok {
		return nil, protoErrf("missing :path")
	}
	service, meth, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	te, _ := fl.get("te")
	if te != "trailers" {
		return nil, protoErrf("incompatible proxy: te=%q", te)
	}
	contentType, _ := fl.get("content-type")
	if !strings.HasPrefix(contentType, contentTypePrefix) {
		return nil, protoErrf("unsupported content-type %q", contentType)
	}

	rh := &RequestHeaders{
		Scheme:  scheme,
		Service: service,
		Method:  meth,
		Custom:  New(),
	}
	rh.Authority, _ = fl.get(":authority")

	if timeoutStr, ok := fl.get("grpc-timeout"); ok {
		d, err := ParseTimeout(timeoutStr)
		if err != nil {
			return nil, protoErrf("%v", err)
		}
		rh.Timeout = &d
	}
	rh.Encoding, _ = fl.get("grpc-encoding")
	if accept, ok := fl.get("grpc-accept-encoding"); ok {
		rh.AcceptEncoding = splitCommaList(accept)
	}
	rh.UserAgent, _ = fl.get("user-agent")
	rh.MessageType, _ = fl.get("grpc-message-type")

	for _, f := range fl {
		if isReservedName(f.Name) {
			continue
		}
		if err := rh.Custom.AddWire(f.Name, f.Value); err != nil {
			return nil, protoErrf("invalid metadata %q: %v", f.Name, err)
		}
	}
	return rh, nil
}

// EmitRequestHeaders is the inverse of ParseRequestHeaders: pseudo-headers
// first, then gRPC control headers, then metadata in insertion order.
func EmitRequestHeaders(rh *RequestHeaders) FieldList {
	fl := FieldList{
		{":method", "POST"},
		{":scheme", rh.Scheme},
		{":path", "/" + rh.Service + "/" + rh.Method},
	}
	if rh.Authority != "" {
		fl = append(fl, Field{":authority", rh.Authority})
	}
	fl = append(fl, Field{"te", "trailers"}, Field{"content-type", contentTypePrefix + "+proto"})
	if rh.Timeout != nil {
		fl = append(fl, Field{"grpc-timeout", FormatTimeout(*rh.Timeout)})
	}
	if rh.Encoding != "" {
		fl = append(fl, Field{"grpc-encoding", rh.Encoding})
	}
	if len(rh.AcceptEncoding) > 0 {
		fl = append(fl, Field{"grpc-accept-encoding", strings.Join(rh.AcceptEncoding, ",")})
	}
	if rh.UserAgent != "" {
		fl = append(fl, Field{"user-agent", rh.UserAgent})
	}
	if rh.MessageType != "" {
		fl = append(fl, Field{"grpc-message-type", rh.MessageType})
	}
	if rh.Custom != nil {
		rh.Custom.EachWire(func(k, v string) { fl = append(fl, Field{k, v}) })
	}
	return fl
}

// ResponseHeaders is the parsed form of a gRPC response's leading headers.
type ResponseHeaders struct {
	ContentType    string
	Encoding       string
	AcceptEncoding []string
	Custom         *MD
}

// ParseResponseHeaders parses a response header field list, per §4.1.
func ParseResponseHeaders(fl FieldList) (*ResponseHeaders, error) {
	statusStr, _ := fl.get(":status")
	if statusStr != "200" {
		return nil, protoErrf("non-200 response status %q", statusStr)
	}
	contentType, _ := fl.get("content-type")
	if !strings.HasPrefix(contentType, contentTypePrefix) {
		return nil, protoErrf("unsupported content-type %q", contentType)
	}
	rh := &ResponseHeaders{ContentType: contentType, Custom: New()}
	rh.Encoding, _ = fl.get("grpc-encoding")
	if accept, ok := fl.get("grpc-accept-encoding"); ok {
		rh.AcceptEncoding = splitCommaList(accept)
	}
	for _, f := range fl {
		if isReservedName(f.Name) {
			continue
		}
		if err := rh.Custom.AddWire(f.Name, f.Value); err != nil {
			return nil, protoErrf("invalid metadata %q: %v", f.Name, err)
		}
	}
	return rh, nil
}

// EmitResponseHeaders is the inverse of ParseResponseHeaders.
func EmitResponseHeaders(rh *ResponseHeaders) FieldList {
	contentType := rh.ContentType
	if contentType == "" {
		contentType = contentTypePrefix + "+proto"
	}
	fl := FieldList{
		{":status", "200"},
		{"content-type", contentType},
	}
	if rh.Encoding != "" {
		fl = append(fl, Field{"grpc-encoding", rh.Encoding})
	}
	if len(rh.AcceptEncoding) > 0 {
		fl = append(fl, Field{"grpc-accept-encoding", strings.Join(rh.AcceptEncoding, ",")})
	}
	if rh.Custom != nil {
		rh.Custom.EachWire(func(k, v string) { fl = append(fl, Field{k, v}) })
	}
	return fl
}

// Trailers is the parsed form of a gRPC response's trailers.
type Trailers struct {
	Status        int
	StatusMessage string
	Custom        *MD
}

// ParseTrailers parses a trailer field list, per §4.1.
func ParseTrailers(fl FieldList) (*Trailers, error) {
	statusStr, ok := fl.get("grpc-status")
	if !ok {
		return nil, protoErrf("missing grpc-status trailer")
	}
	code, err := strconv.Atoi(statusStr)
	if err != nil {
		return nil, protoErrf("invalid grpc-status %q", statusStr)
	}
	tr := &Trailers{Status: code, Custom: New()}
	if msg, ok := fl.get("grpc-message"); ok {
		tr.StatusMessage = percentDecode(msg)
	}
	for _, f := range fl {
		if f.Name == "grpc-status" || f.Name == "grpc-message" || isReservedName(f.Name) {
			continue
		}
		if err := tr.Custom.AddWire(f.Name, f.Value); err != nil {
			return nil, protoErrf("invalid metadata %q: %v", f.Name, err)
		}
	}
	return tr, nil
}

// EmitTrailers is the inverse of ParseTrailers. grpc-message is
// percent-encoded on write per §4.1.
func EmitTrailers(t *Trailers) FieldList {
	fl := FieldList{{"grpc-status", strconv.Itoa(t.Status)}}
	if t.StatusMessage != "" {
		fl = append(fl, Field{"grpc-message", percentEncode(t.StatusMessage)})
	}
	if t.Custom != nil {
		t.Custom.EachWire(func(k, v string) { fl = append(fl, Field{k, v}) })
	}
	return fl
}

func splitPath(path string) (service, method string, err error) {
	if len(path) == 0 || path[0] != '/' {
		return "", "", protoErrf("path %q must start with /", path)
	}
	segments := strings.Split(path[1:], "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", protoErrf("path %q must be /<service>/<method>", path)
	}
	return segments[0], segments[1], nil
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
