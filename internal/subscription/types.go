// Package subscription implements the Subscription Registry and Publish
// Scheduler: subscription/monitored-item lifecycle, periodic dirty
// detection, and long-polled publish completion.
package subscription

import (
	"time"

	"github.com/gopcua/opcua/ua"
)

// Timer constants fixed by the server; see CreateSubscription, which
// always revises a client's requested values to these regardless of what
// was asked for.
const (
	PublishingIntervalMS = 1000
	MaxKeepAliveCount    = 5
	LifetimeCount        = MaxKeepAliveCount * 3
)

// MonitoredItem is one sampled attribute within a Subscription. Only
// AttributeIDValue items participate in dirty detection; EventNotifier
// items are accepted (events themselves are a non-goal) but never marked
// dirty by the scheduler.
type MonitoredItem struct {
	ID            uint32
	SubscriptionID uint32
	AttributeID   uint32
	NodeID        *ua.NodeID
	ClientHandle  uint32
	Dirty         bool
	LastValue     *ua.DataValue
	Timestamps    ua.TimestampsToReturn
}

// Subscription tracks one client subscription: its monitored items in
// insertion order, and the keepalive/lifetime/sequence bookkeeping the
// scheduler mutates every tick.
type Subscription struct {
	ID                     uint32
	SessionID              uint32
	PublishingEnabled      bool
	SeqNum                 uint32
	LastAckSeq             uint32
	LifetimeCounter        uint32
	NotificationsAvailable uint32
	LatePublishRequest     bool

	items       []*MonitoredItem
	nextItemID  uint32
}

// findItem returns the monitored item with the given id, or nil.
func (s *Subscription) findItem(id uint32) *MonitoredItem {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// removeItem unlinks the item with the given id, if present.
func (s *Subscription) removeItem(id uint32) bool {
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// PublishQueueItem is a long-polled publish request captured by
// begin_publish and held until the scheduler (or an immediate match in
// begin_publish itself) completes it. Owned end-to-end: exactly one of the
// scheduler or begin_publish holds it at any time.
type PublishQueueItem struct {
	SessionID  uint32
	Token      interface{}
	Request    *ua.PublishRequest
	AckResults []ua.StatusCode
	ArrivedAt  time.Time
}
