package browse

import (
	"encoding/binary"
	"sync"

	"github.com/gopcua/opcua/ua"
)

// continuationSlot is the single process-wide continuation-point slot.
// Identifier 0 means "free"; the counter skips 0 on rollover. Browse calls
// serialize on mu — the address-space index itself needs no lock, but the
// slot is shared mutable state.
type continuationSlot struct {
	mu         sync.Mutex
	identifier uint32
}

func newContinuationSlot() *continuationSlot {
	return &continuationSlot{}
}

// acquire allocates the slot and returns the 4-byte token. It fails with
// BadNoContinuationPoints if the slot is already occupied — the
// single-slot policy is exclusive, not a pool. The paged-past reference
// and resume index themselves are never retained: BrowseNext is out of
// scope, so the slot only needs to track occupancy.
func (s *continuationSlot) acquire() ([]byte, ua.StatusCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identifier != 0 {
		return nil, ua.StatusBadNoContinuationPoints
	}

	s.identifier++
	if s.identifier == 0 {
		s.identifier++
	}

	token := make([]byte, 4)
	binary.LittleEndian.PutUint32(token, s.identifier)
	return token, ua.StatusOK
}
