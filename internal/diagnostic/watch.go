// Package diagnostic is a small OPC UA client used to smoke-test a running
// server from the command line: connect, create one subscription, add a
// handful of nodes, and print every data change as it arrives. It is the
// client-side counterpart to internal/subscription's server-side publish
// scheduler — useful for confirming the scheduler's keepalive/notification
// cadence against a live endpoint without a full GUI client.
package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/errors"
	"github.com/gopcua/opcua/ua"
)

// DefaultNotifyBufferLen is the size of the channel carrying data-change
// messages out to the caller.
var DefaultNotifyBufferLen = 256

// ErrSlowConsumer is delivered via ErrHandler when the caller's channel
// falls behind the server's notification rate.
var ErrSlowConsumer = errors.New("diagnostic: slow consumer, messages dropped")

// ErrHandler is called for out-of-band delivery errors.
type ErrHandler func(*opcua.Client, *Watch, error)

// DataChangeMessage is one item from a DataChangeNotification, resolved
// back to the NodeID that produced it.
type DataChangeMessage struct {
	*ua.DataValue
	NodeID *ua.NodeID
	Error  error
}

// Watcher connects to a single OPC UA endpoint and hands out Watch
// subscriptions against it.
type Watcher struct {
	client           *opcua.Client
	nextClientHandle uint32
	errHandlerCB     ErrHandler
}

// NewWatcher wraps an already-connected client.
func NewWatcher(client *opcua.Client) *Watcher {
	return &Watcher{client: client, nextClientHandle: 100}
}

// SetErrorHandler installs an optional async error callback.
func (w *Watcher) SetErrorHandler(cb ErrHandler) {
	w.errHandlerCB = cb
}

// Watch is one active subscription against the watcher's client. Nodes may
// be added and removed for as long as the watch is open.
type Watch struct {
	watcher   *Watcher
	sub       *opcua.Subscription
	internal  chan *opcua.PublishNotificationData
	closed    chan struct{}
	delivered uint64
	dropped   uint64
	mu        sync.RWMutex
	handles   map[uint32]*ua.NodeID
}

// ChanSubscribe opens a subscription against nodes (string NodeIDs) and
// streams every data change to ch until the context is canceled or
// Unsubscribe is called.
func (w *Watcher) ChanSubscribe(ctx context.Context, ch chan<- *DataChangeMessage, nodes ...string) (*Watch, error) {
	nodeIDs, err := parseNodeIDs(nodes...)
	if err != nil {
		return nil, err
	}

	watch := &Watch{
		watcher:  w,
		closed:   make(chan struct{}),
		internal: make(chan *opcua.PublishNotificationData, DefaultNotifyBufferLen),
		handles:  make(map[uint32]*ua.NodeID),
	}

	watch.sub, err = w.client.Subscribe(ctx, &opcua.SubscriptionParameters{}, watch.internal)
	if err != nil {
		return nil, err
	}
	if err := watch.AddNodeIDs(ctx, nodeIDs...); err != nil {
		return nil, err
	}

	go watch.pump(ctx, ch)
	return watch, nil
}

func (w *Watch) sendError(err error) {
	if err != nil && w.watcher.errHandlerCB != nil {
		go w.watcher.errHandlerCB(w.watcher.client, w, err)
	}
}

func (w *Watch) pump(ctx context.Context, ch chan<- *DataChangeMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closed:
			return
		case msg := <-w.internal:
			if msg.Error != nil {
				w.sendError(msg.Error)
				continue
			}
			if msg.SubscriptionID != w.sub.SubscriptionID {
				w.sendError(errors.Errorf("watch: notification for subscription %d, want %d", msg.SubscriptionID, w.sub.SubscriptionID))
				continue
			}

			notif, ok := msg.Value.(*ua.DataChangeNotification)
			if !ok {
				w.sendError(errors.Errorf("watch: unexpected notification type %T", msg.Value))
				continue
			}
			for _, item := range notif.MonitoredItems {
				w.mu.RLock()
				nodeID, ok := w.handles[item.ClientHandle]
				w.mu.RUnlock()

				out := &DataChangeMessage{DataValue: item.Value, NodeID: nodeID}
				if !ok {
					out.Error = fmt.Errorf("watch: handle %d not registered", item.ClientHandle)
				}

				select {
				case ch <- out:
					atomic.AddUint64(&w.delivered, 1)
				default:
					atomic.AddUint64(&w.dropped, 1)
					w.sendError(ErrSlowConsumer)
				}
			}
		}
	}
}

// AddNodeIDs starts monitoring additional nodes on an open watch.
func (w *Watch) AddNodeIDs(ctx context.Context, nodes ...*ua.NodeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	requests := make([]*ua.MonitoredItemCreateRequest, len(nodes))
	for i, node := range nodes {
		handle := atomic.AddUint32(&w.watcher.nextClientHandle, 1)
		w.handles[handle] = node
		requests[i] = opcua.NewMonitoredItemCreateRequestWithDefaults(node, ua.AttributeIDValue, handle)
	}

	resp, err := w.sub.Monitor(ctx, ua.TimestampsToReturnBoth, requests...)
	if err != nil {
		return err
	}
	if resp.ResponseHeader.ServiceResult != ua.StatusOK {
		return resp.ResponseHeader.ServiceResult
	}
	return nil
}

// Unsubscribe cancels the subscription and stops the delivery goroutine.
func (w *Watch) Unsubscribe(ctx context.Context) error {
	close(w.closed)
	return w.sub.Cancel(ctx)
}

// Delivered is the number of messages handed to the caller's channel.
func (w *Watch) Delivered() uint64 { return atomic.LoadUint64(&w.delivered) }

// Dropped is the number of messages discarded because the caller's channel
// was full.
func (w *Watch) Dropped() uint64 { return atomic.LoadUint64(&w.dropped) }

func parseNodeIDs(nodes ...string) ([]*ua.NodeID, error) {
	ids := make([]*ua.NodeID, len(nodes))
	for i, n := range nodes {
		id, err := ua.ParseNodeID(n)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
