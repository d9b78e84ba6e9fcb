// Package transport declares the collaborators the core depends on but does
// not implement: the endpoint's deferred-response pair, session lookup, and
// the Read service's value-fill. A production build wires these to the real
// wire encoder/decoder, secure channel, and session manager; tests wire them
// to in-memory fakes.
package transport

import (
	"github.com/gopcua/opcua/ua"
)

// ResponseToken identifies a response captured by BeginSendResponse and
// completed later by EndSendResponse. Its concrete type is up to the
// endpoint implementation; the core only ever stores and returns it.
type ResponseToken interface{}

// Endpoint is the deferred-response half of the transport layer. Publish
// requests call BeginSendResponse when the request arrives and
// EndSendResponse once a notification or keepalive is ready to go out,
// possibly ticks later.
type Endpoint interface {
	BeginSendResponse() (ResponseToken, error)
	EndSendResponse(token ResponseToken, status ua.StatusCode, resp *ua.PublishResponse) error
}

// SessionData is the subset of session state the core needs: whether the
// session has completed activation, and the id used to pair queued publish
// requests with their owning session.
type SessionData struct {
	ID                  uint32
	AuthenticationToken *ua.NodeID
	Active              bool
}

// SessionProvider resolves an authentication token to session data. Find
// returns false for an unknown token.
type SessionProvider interface {
	Find(token *ua.NodeID) (*SessionData, bool)
}

// ValueReader is the Read service's collaborator: sampling a Variable
// node's current value. FillDataValue must return a DataValue with a zero
// Value (nil Variant) rather than an error when the node legitimately has
// no current value; a non-nil error means the read itself failed.
type ValueReader interface {
	FillDataValue(nodeID *ua.NodeID, ts ua.TimestampsToReturn) (*ua.DataValue, error)
}
