// Package clienterr defines the error taxonomy surfaced to callers of the
// telephony client: host reachability failures, server-reported failures,
// schema failures, caller contract violations, transport interruptions, and
// cancellation.
package clienterr

import "fmt"

// HostUnreachable is returned by Connect when the server cannot be reached
// at all: DNS failure, connection refused, or TLS failure. Collapsing these
// into a single condition lets callers handle "the host isn't there" without
// branching on the underlying net error.
type HostUnreachable struct {
	URL   string
	Cause error
}

func (e *HostUnreachable) Error() string {
	return fmt.Sprintf("host is not reachable: %s: %v", e.URL, e.Cause)
}

func (e *HostUnreachable) Unwrap() error { return e.Cause }

// NewHostUnreachable wraps cause as a HostUnreachable error for url.
func NewHostUnreachable(url string, cause error) error {
	return &HostUnreachable{URL: url, Cause: cause}
}

// Server is returned when the server responds with an HTTP status >= 400.
// Message is taken from the response body's "message" field when present,
// otherwise the HTTP reason phrase.
type Server struct {
	Status  int
	Message string
}

func (e *Server) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// NewServer constructs a Server error.
func NewServer(status int, message string) error {
	return &Server{Status: status, Message: message}
}

// SchemaInvalid is returned when a self-description document is malformed
// or missing a required top-level key.
type SchemaInvalid struct {
	Doc   string
	Cause error
}

func (e *SchemaInvalid) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("schema invalid: %s", e.Doc)
	}
	return fmt.Sprintf("schema invalid: %s: %v", e.Doc, e.Cause)
}

func (e *SchemaInvalid) Unwrap() error { return e.Cause }

// NewSchemaInvalid wraps cause as a SchemaInvalid error for the named
// document.
func NewSchemaInvalid(doc string, cause error) error {
	return &SchemaInvalid{Doc: doc, Cause: cause}
}

// MissingRequiredParameter is returned by the Parameter Binder when a
// required parameter is absent from the caller-supplied options.
type MissingRequiredParameter struct {
	Name string
}

func (e *MissingRequiredParameter) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Name)
}

// NewMissingRequiredParameter constructs a MissingRequiredParameter error.
func NewMissingRequiredParameter(name string) error {
	return &MissingRequiredParameter{Name: name}
}

// Transport is returned when a request fails mid-flight due to a network
// interruption (as opposed to HostUnreachable, which is a connect-time
// failure surfaced from Connect and from opening the WebSocket Session).
type Transport struct {
	Cause error
}

func (e *Transport) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *Transport) Unwrap() error { return e.Cause }

// NewTransport wraps cause as a Transport error.
func NewTransport(cause error) error {
	return &Transport{Cause: cause}
}

// Cancelled is returned when an operation's context is cancelled or its
// deadline is exceeded.
type Cancelled struct {
	Cause error
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Cause)
}

func (e *Cancelled) Unwrap() error { return e.Cause }

// NewCancelled wraps cause as a Cancelled error.
func NewCancelled(cause error) error {
	return &Cancelled{Cause: cause}
}
