package subscription

import "github.com/gopcua/opcua/ua"

// Service is the request/response-shaped façade over Registry: it applies
// the fixed revision rules and per-item result-array contracts the
// reference implementation uses for CreateSubscription, DeleteSubscriptions,
// CreateMonitoredItems, DeleteMonitoredItems, and SetPublishingMode.
type Service struct {
	registry *Registry
}

// NewService builds a Service over registry.
func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

// CreateSubscription always revises the requested publishing interval,
// lifetime count, and max keepalive count to the server's fixed constants,
// regardless of what the client asked for.
func (s *Service) CreateSubscription(sessionID uint32, req *ua.CreateSubscriptionRequest) *ua.CreateSubscriptionResponse {
	s.registry.Lock()
	defer s.registry.Unlock()

	sub := s.registry.CreateSubscriptionLocked(sessionID, req.PublishingEnabled)

	return &ua.CreateSubscriptionResponse{
		SubscriptionID:            sub.ID,
		RevisedPublishingInterval: PublishingIntervalMS,
		RevisedLifetimeCount:      LifetimeCount,
		RevisedMaxKeepAliveCount:  MaxKeepAliveCount,
	}
}

// DeleteSubscriptions produces one status per requested id: Good on
// success, BadSubscriptionIDInvalid for an id that doesn't resolve.
func (s *Service) DeleteSubscriptions(ids []uint32) []ua.StatusCode {
	s.registry.Lock()
	defer s.registry.Unlock()

	results := make([]ua.StatusCode, len(ids))
	for i, id := range ids {
		if s.registry.DeleteSubscriptionLocked(id) {
			results[i] = ua.StatusOK
		} else {
			results[i] = ua.StatusBadSubscriptionIDInvalid
		}
	}
	return results
}

// CreateMonitoredItems fails the whole call with BadSubscriptionIDInvalid
// before allocating any per-item result if the subscription id does not
// resolve. Otherwise every successful item gets RevisedSamplingInterval
// fixed at the publishing interval and RevisedQueueSize fixed at 1 — the
// registry is a single-slot-per-item store, there is no deeper queue.
func (s *Service) CreateMonitoredItems(subscriptionID uint32, ts ua.TimestampsToReturn, items []*ua.MonitoredItemCreateRequest) ([]*ua.MonitoredItemCreateResult, ua.StatusCode) {
	s.registry.Lock()
	defer s.registry.Unlock()

	sub := s.registry.FindSubscriptionLocked(subscriptionID)
	if sub == nil {
		return nil, ua.StatusBadSubscriptionIDInvalid
	}

	results := make([]*ua.MonitoredItemCreateResult, len(items))
	for i, req := range items {
		attrID := uint32(req.ItemToMonitor.AttributeID)
		clientHandle := req.RequestedParameters.ClientHandle

		item, status := s.registry.CreateMonitoredItemLocked(sub, attrID, req.ItemToMonitor.NodeID, clientHandle, ts)
		if status != ua.StatusOK {
			results[i] = &ua.MonitoredItemCreateResult{StatusCode: status}
			continue
		}
		results[i] = &ua.MonitoredItemCreateResult{
			StatusCode:              ua.StatusOK,
			MonitoredItemID:         item.ID,
			RevisedSamplingInterval: PublishingIntervalMS,
			RevisedQueueSize:        1,
		}
	}
	return results, ua.StatusOK
}

// DeleteMonitoredItems mirrors CreateMonitoredItems's whole-call-fails
// pattern for a bad subscription id, then returns one status per item.
func (s *Service) DeleteMonitoredItems(subscriptionID uint32, itemIDs []uint32) ([]ua.StatusCode, ua.StatusCode) {
	s.registry.Lock()
	defer s.registry.Unlock()

	sub := s.registry.FindSubscriptionLocked(subscriptionID)
	if sub == nil {
		return nil, ua.StatusBadSubscriptionIDInvalid
	}

	results := make([]ua.StatusCode, len(itemIDs))
	for i, id := range itemIDs {
		if s.registry.DeleteMonitoredItemLocked(sub, id) {
			results[i] = ua.StatusOK
		} else {
			results[i] = ua.StatusBadMonitoredItemIDInvalid
		}
	}
	return results, ua.StatusOK
}

// CloseSession destroys every subscription (and its monitored items) owned
// by sessionID, the cleanup a session teardown must trigger so no
// orphaned subscription keeps ticking forever.
func (s *Service) CloseSession(sessionID uint32) {
	s.registry.Lock()
	defer s.registry.Unlock()
	s.registry.DeleteAllForSessionLocked(sessionID)
}

// SetPublishingMode mirrors DeleteSubscriptions's per-id result shape.
func (s *Service) SetPublishingMode(ids []uint32, enabled bool) []ua.StatusCode {
	s.registry.Lock()
	defer s.registry.Unlock()

	results := make([]ua.StatusCode, len(ids))
	for i, id := range ids {
		sub := s.registry.FindSubscriptionLocked(id)
		if sub == nil {
			results[i] = ua.StatusBadSubscriptionIDInvalid
			continue
		}
		s.registry.SetPublishingModeLocked(sub, enabled)
		results[i] = ua.StatusOK
	}
	return results
}
