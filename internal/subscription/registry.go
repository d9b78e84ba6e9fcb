package subscription

import (
	"sync"

	"github.com/gopcua/opcua/ua"

	"github.com/ioansiran/opcua-server/internal/addrspace"
	"github.com/ioansiran/opcua-server/internal/metrics"
)

// Registry is the subscription/monitored-item lifecycle store. It
// maintains subscriptions in insertion order behind a single mutex — the
// same mutex the Publish Scheduler locks for the whole of a tick or a
// service call, per the spec's single-lock-no-nesting rule. A slice keyed
// by insertion order replaces the reference implementation's sentinel
// linked list; nothing here needs stable pointers into the middle of the
// list, only stable ids.
type Registry struct {
	mu sync.Mutex

	index *addrspace.Index

	subscriptions []*Subscription
	nextSubID     uint32

	onEmpty   func()
	onNonEmpty func()
}

// NewRegistry builds an empty Registry resolving monitored-item node ids
// against index.
func NewRegistry(index *addrspace.Index) *Registry {
	return &Registry{index: index}
}

// OnTimerEdges registers callbacks fired (still holding the lock) when the
// subscription count transitions from zero to non-zero and back — the
// hook the Scheduler uses to start/stop its ticker, mirroring
// add_subscription starting the timer and delete_subscription stopping it
// once the list empties.
func (r *Registry) OnTimerEdges(onNonEmpty, onEmpty func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onNonEmpty = onNonEmpty
	r.onEmpty = onEmpty
}

// Lock and Unlock expose the registry's mutex directly so the Scheduler can
// hold it across an entire tick or service call, matching the spec's "one
// global subscription_mutex, no nested locks" rule instead of re-entering
// per method.
func (r *Registry) Lock()   { r.mu.Lock() }
func (r *Registry) Unlock() { r.mu.Unlock() }

// CreateSubscriptionLocked allocates a new Subscription and appends it.
// Caller must hold the lock.
func (r *Registry) CreateSubscriptionLocked(sessionID uint32, publishingEnabled bool) *Subscription {
	r.nextSubID++
	if r.nextSubID == 0 {
		r.nextSubID++
	}
	wasEmpty := len(r.subscriptions) == 0

	sub := &Subscription{
		ID:                r.nextSubID,
		SessionID:         sessionID,
		PublishingEnabled: publishingEnabled,
		LifetimeCounter:   LifetimeCount,
	}
	r.subscriptions = append(r.subscriptions, sub)
	metrics.SubscriptionsActive.Inc()

	if wasEmpty && r.onNonEmpty != nil {
		r.onNonEmpty()
	}
	return sub
}

// FindSubscriptionLocked returns the subscription with id, or nil. Caller
// must hold the lock.
func (r *Registry) FindSubscriptionLocked(id uint32) *Subscription {
	for _, s := range r.subscriptions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// DeleteSubscriptionLocked removes the subscription with id. Returns false
// if no such subscription exists. Caller must hold the lock.
func (r *Registry) DeleteSubscriptionLocked(id uint32) bool {
	for i, s := range r.subscriptions {
		if s.ID == id {
			r.subscriptions = append(r.subscriptions[:i], r.subscriptions[i+1:]...)
			metrics.SubscriptionsActive.Dec()
			metrics.MonitoredItemsActive.Sub(float64(len(s.items)))
			if len(r.subscriptions) == 0 && r.onEmpty != nil {
				r.onEmpty()
			}
			return true
		}
	}
	return false
}

// DeleteAllForSessionLocked deletes every subscription owned by sessionID,
// for use on session teardown. Caller must hold the lock.
func (r *Registry) DeleteAllForSessionLocked(sessionID uint32) {
	kept := r.subscriptions[:0]
	var removedSubs, removedItems int
	for _, s := range r.subscriptions {
		if s.SessionID != sessionID {
			kept = append(kept, s)
			continue
		}
		removedSubs++
		removedItems += len(s.items)
	}
	r.subscriptions = kept
	metrics.SubscriptionsActive.Sub(float64(removedSubs))
	metrics.MonitoredItemsActive.Sub(float64(removedItems))
	if len(r.subscriptions) == 0 && r.onEmpty != nil {
		r.onEmpty()
	}
}

// SubscriptionsLocked returns the live subscriptions in tick order. The
// returned slice aliases internal storage and must not be retained past
// the lock being held.
func (r *Registry) SubscriptionsLocked() []*Subscription {
	return r.subscriptions
}

// attributeIDValue and attributeIDEventNotifier are the only two attribute
// ids CreateMonitoredItem accepts.
const (
	attributeIDValue         = uint32(ua.AttributeIDValue)
	attributeIDEventNotifier = uint32(ua.AttributeIDEventNotifier)
)

// CreateMonitoredItemLocked validates the attribute id and node existence,
// then appends a new item to sub with dirty=true when attributeID==Value
// so the first publish emits a baseline. Caller must hold the lock.
func (r *Registry) CreateMonitoredItemLocked(sub *Subscription, attributeID uint32, nodeID *ua.NodeID, clientHandle uint32, ts ua.TimestampsToReturn) (*MonitoredItem, ua.StatusCode) {
	if attributeID != attributeIDValue && attributeID != attributeIDEventNotifier {
		return nil, ua.StatusBadAttributeIDInvalid
	}
	if r.index.LookupByNodeID(nodeID) == nil {
		return nil, ua.StatusBadNodeIDUnknown
	}

	sub.nextItemID++
	if sub.nextItemID == 0 {
		sub.nextItemID++
	}

	item := &MonitoredItem{
		ID:             sub.nextItemID,
		SubscriptionID: sub.ID,
		AttributeID:    attributeID,
		NodeID:         nodeID,
		ClientHandle:   clientHandle,
		Timestamps:     ts,
	}
	if attributeID == attributeIDValue {
		item.Dirty = true
		sub.NotificationsAvailable++
	}
	sub.items = append(sub.items, item)
	metrics.MonitoredItemsActive.Inc()
	return item, ua.StatusOK
}

// DeleteMonitoredItemLocked removes the item with id from sub. Caller must
// hold the lock.
func (r *Registry) DeleteMonitoredItemLocked(sub *Subscription, id uint32) bool {
	if !sub.removeItem(id) {
		return false
	}
	metrics.MonitoredItemsActive.Dec()
	return true
}

// FindMonitoredItemLocked returns the item with id within sub, or nil.
// Caller must hold the lock.
func (r *Registry) FindMonitoredItemLocked(sub *Subscription, id uint32) *MonitoredItem {
	return sub.findItem(id)
}

// SetPublishingModeLocked sets PublishingEnabled on sub. Caller must hold
// the lock.
func (r *Registry) SetPublishingModeLocked(sub *Subscription, enabled bool) {
	sub.PublishingEnabled = enabled
}
