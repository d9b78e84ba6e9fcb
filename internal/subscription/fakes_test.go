package subscription

import (
	"sync"

	"github.com/gopcua/opcua/ua"

	"github.com/ioansiran/opcua-server/internal/transport"
)

// fakeEndpoint is an in-memory transport.Endpoint recording every completed
// response for assertions.
type fakeEndpoint struct {
	mu        sync.Mutex
	nextToken int
	completed []completedResponse
}

type completedResponse struct {
	token  interface{}
	status ua.StatusCode
	resp   *ua.PublishResponse
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{}
}

func (e *fakeEndpoint) BeginSendResponse() (transport.ResponseToken, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextToken++
	return e.nextToken, nil
}

func (e *fakeEndpoint) EndSendResponse(token transport.ResponseToken, status ua.StatusCode, resp *ua.PublishResponse) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, completedResponse{token: token, status: status, resp: resp})
	return nil
}

func (e *fakeEndpoint) last() completedResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed[len(e.completed)-1]
}

func (e *fakeEndpoint) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.completed)
}

// fakeSessions is an in-memory transport.SessionProvider.
type fakeSessions struct {
	byToken map[string]*fakeSessionEntry
}

type fakeSessionEntry struct {
	id     uint32
	active bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: make(map[string]*fakeSessionEntry)}
}

func (s *fakeSessions) add(token *ua.NodeID, id uint32, active bool) {
	s.byToken[token.String()] = &fakeSessionEntry{id: id, active: active}
}

func (s *fakeSessions) Find(token *ua.NodeID) (*transport.SessionData, bool) {
	e, ok := s.byToken[token.String()]
	if !ok {
		return nil, false
	}
	return &transport.SessionData{ID: e.id, AuthenticationToken: token, Active: e.active}, true
}

// fakeReader is an in-memory transport.ValueReader backed by a map of
// current values, mutable between ticks to simulate value changes.
type fakeReader struct {
	mu     sync.Mutex
	values map[string]*ua.DataValue
}

func newFakeReader() *fakeReader {
	return &fakeReader{values: make(map[string]*ua.DataValue)}
}

func (r *fakeReader) set(nodeID *ua.NodeID, dv *ua.DataValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[nodeID.String()] = dv
}

func (r *fakeReader) FillDataValue(nodeID *ua.NodeID, _ ua.TimestampsToReturn) (*ua.DataValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dv, ok := r.values[nodeID.String()]
	if !ok {
		return &ua.DataValue{}, nil
	}
	return dv, nil
}
