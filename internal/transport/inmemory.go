package transport

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gopcua/opcua/ua"
)

// InMemoryEndpoint is a transport.Endpoint that completes responses
// in-process instead of writing to a secure channel. It exists so the
// service layer (browse, translate, subscription) is runnable and testable
// without a real uacp/uasc binary transport, which is out of this repo's
// scope — a production deployment swaps this for a listener that encodes
// PublishResponse onto the wire.
type InMemoryEndpoint struct {
	mu        sync.Mutex
	completed map[string]completion
}

type completion struct {
	status ua.StatusCode
	resp   *ua.PublishResponse
}

// NewInMemoryEndpoint builds an empty InMemoryEndpoint.
func NewInMemoryEndpoint() *InMemoryEndpoint {
	return &InMemoryEndpoint{completed: make(map[string]completion)}
}

// BeginSendResponse allocates a correlation id for a deferred response.
func (e *InMemoryEndpoint) BeginSendResponse() (ResponseToken, error) {
	return uuid.NewString(), nil
}

// EndSendResponse records the completion so a caller holding the same
// token can retrieve it with Take.
func (e *InMemoryEndpoint) EndSendResponse(token ResponseToken, status ua.StatusCode, resp *ua.PublishResponse) error {
	id, _ := token.(string)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed[id] = completion{status: status, resp: resp}
	return nil
}

// Take removes and returns the completion recorded for token, if any.
func (e *InMemoryEndpoint) Take(token ResponseToken) (ua.StatusCode, *ua.PublishResponse, bool) {
	id, _ := token.(string)
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.completed[id]
	if !ok {
		return ua.StatusOK, nil, false
	}
	delete(e.completed, id)
	return c.status, c.resp, true
}

// InMemorySessions is a transport.SessionProvider backed by a map keyed on
// the authentication token's string form.
type InMemorySessions struct {
	mu   sync.RWMutex
	byID map[string]*SessionData
}

// NewInMemorySessions builds an empty session table.
func NewInMemorySessions() *InMemorySessions {
	return &InMemorySessions{byID: make(map[string]*SessionData)}
}

// Open creates (or replaces) an active session and returns its
// authentication token.
func (s *InMemorySessions) Open(sessionID uint32) *ua.NodeID {
	token := ua.NewStringNodeID(0, uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[token.String()] = &SessionData{ID: sessionID, AuthenticationToken: token, Active: true}
	return token
}

// Close marks a session inactive without removing it, mirroring a real
// session whose channel dropped but whose subscriptions still wait out
// their lifetime counters.
func (s *InMemorySessions) Close(token *ua.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[token.String()]; ok {
		sess.Active = false
	}
}

// Find implements SessionProvider.
func (s *InMemorySessions) Find(token *ua.NodeID) (*SessionData, bool) {
	if token == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[token.String()]
	return sess, ok
}
