package subscription

import (
	"sync"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/ioansiran/opcua-server/internal/addrspace"
	"github.com/ioansiran/opcua-server/internal/metrics"
	"github.com/ioansiran/opcua-server/internal/transport"
)

// dataChangeNotificationTypeID is DataChangeNotification_Encoding_DefaultBinary
// (OPC UA Part 6, namespace 0), used as the ExtensionObject's TypeId.
const dataChangeNotificationTypeID = 811

// Scheduler drives the Publish flow: a 1000ms tick that recomputes dirty
// state and completes queued publish requests, plus the begin_publish /
// begin_republish long-poll entry points. It shares Registry's mutex —
// every method that touches subscriptions, monitored items, or the publish
// queue locks that single mutex for its full duration, per the spec's
// no-nested-locks rule.
type Scheduler struct {
	registry *Registry
	index    *addrspace.Index
	sessions transport.SessionProvider
	endpoint transport.Endpoint
	reader   transport.ValueReader
	log      zerolog.Logger

	queue []*PublishQueueItem

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler builds a Scheduler. interval overrides PublishingIntervalMS
// for tests; production callers pass PublishingIntervalMS *
// time.Millisecond.
func NewScheduler(registry *Registry, index *addrspace.Index, sessions transport.SessionProvider, endpoint transport.Endpoint, reader transport.ValueReader, interval time.Duration, log zerolog.Logger) *Scheduler {
	sched := &Scheduler{
		registry: registry,
		index:    index,
		sessions: sessions,
		endpoint: endpoint,
		reader:   reader,
		interval: interval,
		log:      log.With().Str("component", "publish-scheduler").Logger(),
	}
	registry.OnTimerEdges(sched.start, sched.stop)
	return sched
}

// start is called by the registry (still holding its lock) the moment the
// subscription count goes from zero to one. It must not block.
func (s *Scheduler) start() {
	if s.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.wg.Add(1)
	go s.run(stopCh)
	s.log.Debug().Msg("publish timer started")
}

// stop is called by the registry (still holding its lock) the moment the
// subscription count returns to zero.
func (s *Scheduler) stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.log.Debug().Msg("publish timer stop requested")
}

// Close halts the background timer goroutine unconditionally, for use at
// server shutdown regardless of subscription state.
func (s *Scheduler) Close() {
	s.registry.Lock()
	running := s.stopCh != nil
	if running {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.registry.Unlock()
	if running {
		s.wg.Wait()
	}
}

func (s *Scheduler) run(stopCh chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick implements the scheduler's per-interval pass: under the lock, call
// needsNotification(tick=true) on every subscription in list order, and for
// each that comes back true, reset its lifetime counter and either
// complete a matching queued publish request or mark it as late.
func (s *Scheduler) tick() {
	metrics.PublishTicksTotal.Inc()

	s.registry.Lock()
	defer s.registry.Unlock()

	snapshot := append([]*Subscription(nil), s.registry.SubscriptionsLocked()...)
	for _, sub := range snapshot {
		if s.registry.FindSubscriptionLocked(sub.ID) == nil {
			continue // deleted earlier in this same tick pass
		}
		if !s.needsNotificationLocked(sub, true) {
			continue
		}
		sub.LifetimeCounter = LifetimeCount

		item := s.dequeueLocked(sub.SessionID)
		if item == nil {
			sub.LatePublishRequest = true
			continue
		}
		s.completePublishLocked(item, sub, ua.StatusOK)
	}
}

// needsNotificationLocked implements needs_notification. Caller must hold
// the lock.
func (s *Scheduler) needsNotificationLocked(sub *Subscription, tick bool) bool {
	sub.NotificationsAvailable = 0

	if !sub.PublishingEnabled {
		return false
	}

	for _, item := range sub.items {
		if item.AttributeID != attributeIDValue {
			continue
		}
		node := s.index.LookupByNodeID(item.NodeID)
		if node == nil || !node.Variable() {
			continue
		}

		current, err := s.reader.FillDataValue(item.NodeID, ua.TimestampsToReturnServer)
		if err != nil {
			continue
		}

		if !item.Dirty && !isValueDifferent(item.LastValue, current) {
			continue
		}
		if isEmptyValue(current) {
			item.Dirty = false
			continue
		}

		item.Dirty = true
		sub.NotificationsAvailable++
		if copied, status := copyDataValue(current); status == ua.StatusOK {
			item.LastValue = copied
		}
	}

	if sub.NotificationsAvailable > 0 {
		return true
	}
	if tick {
		if sub.LifetimeCounter > 0 {
			sub.LifetimeCounter--
		}
	}
	if sub.SeqNum == 0 {
		return true
	}
	if sub.LifetimeCounter == 0 {
		s.registry.DeleteSubscriptionLocked(sub.ID)
		metrics.SubscriptionsExpiredTotal.Inc()
		return false
	}
	if sub.LifetimeCounter%MaxKeepAliveCount == 0 {
		return true
	}
	return false
}

// dequeueLocked removes and returns the first queued item owned by
// sessionID, or nil. Caller must hold the lock.
func (s *Scheduler) dequeueLocked(sessionID uint32) *PublishQueueItem {
	for i, item := range s.queue {
		if item.SessionID == sessionID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return item
		}
	}
	return nil
}

// completePublishLocked implements complete_publish. When sub is nil this
// is an error/fault completion with no notification body. Caller must hold
// the lock.
func (s *Scheduler) completePublishLocked(item *PublishQueueItem, sub *Subscription, status ua.StatusCode) {
	metrics.PublishLatency.Observe(time.Since(item.ArrivedAt).Seconds())

	if status != ua.StatusOK {
		_ = s.endpoint.EndSendResponse(item.Token, status, nil)
		return
	}

	if sub == nil {
		resp := &ua.PublishResponse{SubscriptionID: 0, MoreNotifications: false, Results: item.AckResults}
		_ = s.endpoint.EndSendResponse(item.Token, ua.StatusOK, resp)
		return
	}

	sub.SeqNum++
	notif := &ua.DataChangeNotification{}

	if sub.NotificationsAvailable > 0 {
		items := make([]*ua.MonitoredItemNotification, 0, sub.NotificationsAvailable)
		for _, mi := range sub.items {
			if !mi.Dirty {
				continue
			}
			items = append(items, &ua.MonitoredItemNotification{
				ClientHandle: mi.ClientHandle,
				Value:        mi.LastValue,
			})
			mi.Dirty = false
		}
		notif.MonitoredItems = items
	}

	if len(notif.MonitoredItems) > 0 {
		metrics.NotificationsSentTotal.Add(float64(len(notif.MonitoredItems)))
		s.log.Debug().Uint32("subscription_id", sub.ID).Uint32("seq_num", sub.SeqNum).Int("changed_items", len(notif.MonitoredItems)).Msg("data change notification")
	} else {
		metrics.KeepAlivesSentTotal.Inc()
		s.log.Debug().Uint32("subscription_id", sub.ID).Uint32("seq_num", sub.SeqNum).Msg("keepalive")
	}

	resp := &ua.PublishResponse{
		SubscriptionID:    sub.ID,
		MoreNotifications: false,
		Results:           item.AckResults,
		NotificationMessage: &ua.NotificationMessage{
			SequenceNumber: sub.SeqNum,
			PublishTime:    time.Now(),
			NotificationData: []*ua.ExtensionObject{
				{
					TypeID: &ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(0, dataChangeNotificationTypeID)},
					Value:  notif,
				},
			},
		},
	}
	_ = s.endpoint.EndSendResponse(item.Token, ua.StatusOK, resp)
}

// BeginPublish implements begin_publish: resolve the session, capture a
// deferred response, process acknowledgements, and either complete
// immediately or enqueue for the next tick.
func (s *Scheduler) BeginPublish(req *ua.PublishRequest) ua.StatusCode {
	sess, ok := s.sessions.Find(req.RequestHeader.AuthenticationToken)
	if !ok {
		return ua.StatusBadSecurityChecksFailed
	}

	token, err := s.endpoint.BeginSendResponse()
	if err != nil {
		return ua.StatusBadOutOfMemory
	}
	item := &PublishQueueItem{SessionID: sess.ID, Token: token, Request: req, ArrivedAt: time.Now()}

	s.registry.Lock()
	defer s.registry.Unlock()

	if !sess.Active {
		s.completePublishLocked(item, nil, ua.StatusBadSessionNotActivated)
		return ua.StatusBadSessionNotActivated
	}

	item.AckResults = make([]ua.StatusCode, len(req.SubscriptionAcknowledgements))
	for i, ack := range req.SubscriptionAcknowledgements {
		sub := s.registry.FindSubscriptionLocked(ack.SubscriptionID)
		switch {
		case sub == nil:
			item.AckResults[i] = ua.StatusBadSubscriptionIDInvalid
		case ack.SequenceNumber != sub.SeqNum:
			item.AckResults[i] = ua.StatusBadSequenceNumberUnknown
		default:
			sub.LastAckSeq = ack.SequenceNumber
			item.AckResults[i] = ua.StatusOK
		}
	}

	for _, sub := range s.registry.SubscriptionsLocked() {
		if sub.SessionID != sess.ID {
			continue
		}
		if s.needsNotificationLocked(sub, false) {
			sub.LifetimeCounter = LifetimeCount
			s.completePublishLocked(item, sub, ua.StatusOK)
			return ua.StatusOK
		}
	}

	s.queue = append(s.queue, item)
	return ua.StatusOK
}

// CloseSession tears down everything a session owns: every queued publish
// request belonging to it is completed with an error status, then every
// subscription it owns is destroyed. Matches the spec's session-teardown
// rule — queued items are faulted before subscription memory is released,
// not left to dangle.
func (s *Scheduler) CloseSession(sessionID uint32) {
	s.registry.Lock()
	defer s.registry.Unlock()

	remaining := s.queue[:0]
	for _, item := range s.queue {
		if item.SessionID == sessionID {
			s.completePublishLocked(item, nil, ua.StatusBadSessionClosed)
			continue
		}
		remaining = append(remaining, item)
	}
	s.queue = remaining

	s.registry.DeleteAllForSessionLocked(sessionID)
}

// BeginRepublish always fails: the single-slot design retains no
// historical notifications to retransmit.
func (s *Scheduler) BeginRepublish() ua.StatusCode {
	return ua.StatusBadMessageNotAvailable
}
