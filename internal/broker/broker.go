// Package broker implements the request/response pattern shared by all
// worker integrations: an outbound request table keyed by correlation id,
// one inbound dispatcher, and per-call timeouts. Implemented once and
// parameterized by payload, instead of one ad hoc pending map per worker.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// DefaultTimeout bounds how long a caller waits for a worker response. The
// worker itself is never cancelled; only the caller's wait is abandoned.
const DefaultTimeout = 30 * time.Second

// Response type tags on the wire.
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeReady   = "ready"
)

// Request is one outbound message to a worker.
type Request struct {
	ID      uint64 `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Response is one inbound message from a worker. The initial readiness
// announcement carries Type "ready" and no ID.
type Response struct {
	ID     uint64 `json:"id,omitempty"`
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Transport delivers requests to a worker. Implementations feed worker
// output back through Broker.Dispatch.
type Transport interface {
	Send(req Request) error
}

// Options tunes a Broker.
type Options struct {
	// Timeout is the per-call wait bound; 0 means DefaultTimeout.
	Timeout time.Duration
}

// Broker correlates worker requests with responses.
type Broker struct {
	transport Transport
	timeout   time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response

	readyOnce sync.Once
	readyCh   chan struct{}
}

// New creates a broker over transport.
func New(transport Transport, opts Options) *Broker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Broker{
		transport: transport,
		timeout:   opts.Timeout,
		pending:   make(map[uint64]chan Response),
		readyCh:   make(chan struct{}),
	}
}

// WaitReady blocks until the worker announced readiness or ctx ends.
func (b *Broker) WaitReady(ctx context.Context) error {
	select {
	case <-b.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call sends one typed request and waits for the correlated response. On
// timeout the pending entry is removed and a late response is ignored.
func (b *Broker) Call(ctx context.Context, msgType string, payload any) (any, error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	ch := make(chan Response, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	if err := b.transport.Send(Request{ID: id, Type: msgType, Payload: payload}); err != nil {
		b.drop(id)
		return nil, err
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Type == TypeError {
			return nil, errors.NewInternal("worker: " + resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		b.drop(id)
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Code:    errors.CodeTimeout,
			Message: "worker response timed out",
		}
	case <-ctx.Done():
		b.drop(id)
		return nil, ctx.Err()
	}
}

// Dispatch routes one inbound message. Responses without a waiting caller
// (late arrivals after timeout) are dropped silently.
func (b *Broker) Dispatch(resp Response) {
	if resp.Type == TypeReady {
		b.readyOnce.Do(func() { close(b.readyCh) })
		return
	}

	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// Pending returns the number of in-flight calls.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Broker) drop(id uint64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Handler processes one request and returns a result or an error.
type Handler func(ctx context.Context, req Request) (any, error)

// LocalTransport runs a handler in-process, one goroutine per request. It is
// the transport used for local workers and tests.
type LocalTransport struct {
	handler Handler
	broker  *Broker
}

// NewLocal wires a broker to an in-process handler and announces readiness
// immediately.
func NewLocal(handler Handler, opts Options) *Broker {
	t := &LocalTransport{handler: handler}
	b := New(t, opts)
	t.broker = b
	b.Dispatch(Response{Type: TypeReady})
	return b
}

// Send executes the handler asynchronously and dispatches its outcome.
func (t *LocalTransport) Send(req Request) error {
	go func() {
		result, err := t.handler(context.Background(), req)
		if err != nil {
			t.broker.Dispatch(Response{ID: req.ID, Type: TypeError, Error: err.Error()})
			return
		}
		t.broker.Dispatch(Response{ID: req.ID, Type: TypeSuccess, Result: result})
	}()
	return nil
}
