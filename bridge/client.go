package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"opendocs/config"
	"opendocs/model"
)

// ConnectionLostMessage ends subscriptions still open when the connection drops.
const ConnectionLostMessage = "Connection to the chat service was lost."

// Handlers receive the events of one exchange. Exactly one of OnDone and
// OnError is called, after every OnFragment. Nil handlers are skipped.
type Handlers struct {
	OnFragment func(text string)
	OnDone     func()
	OnError    func(message string)
}

// Subscription is the UI's handle on one in-flight exchange.
type Subscription struct {
	id       string
	handlers Handlers
	client   *Client

	once sync.Once
	done chan struct{}
}

// ID returns the request ID of the exchange.
func (s *Subscription) ID() string { return s.id }

// Done is closed once the subscription has been torn down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel asks the relay to stop the exchange. The subscription stays open
// until the relay's terminal event arrives.
func (s *Subscription) Cancel() error {
	return s.client.conn.WriteEnvelope(Envelope{Type: TypeChatCancel, RequestID: s.id})
}

// Close detaches the subscription without waiting for a terminal event.
// Later events for its request ID are dropped.
func (s *Subscription) Close() {
	s.finish(nil)
}

func (s *Subscription) finish(terminal func()) {
	s.once.Do(func() {
		s.client.registry.Remove(s.id)
		if terminal != nil {
			terminal()
		}
		close(s.done)
	})
}

// Registry tracks the live subscriptions of one client.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Add registers s, refusing a duplicate request ID.
func (r *Registry) Add(s *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s.id]; ok {
		return fmt.Errorf("request %s is already streaming", s.id)
	}
	r.subs[s.id] = s
	return nil
}

// Get returns the subscription for id, or nil.
func (r *Registry) Get(id string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[id]
}

// Remove forgets id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	return subs
}

// Client is the UI side of the bridge.
type Client struct {
	conn     Conn
	registry *Registry

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient wraps conn. Call Run to start dispatching.
func NewClient(conn Conn) *Client {
	return &Client{
		conn:     conn,
		registry: NewRegistry(),
		closed:   make(chan struct{}),
	}
}

// Registry exposes the client's subscriptions.
func (c *Client) Registry() *Registry { return c.registry }

// StreamChat sends req and routes its events to h. An empty req.ID is
// replaced by a fresh one.
func (c *Client) StreamChat(req model.ChatRequest, h Handlers) (*Subscription, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	sub := &Subscription{
		id:       req.ID,
		handlers: h,
		client:   c,
		done:     make(chan struct{}),
	}
	if err := c.registry.Add(sub); err != nil {
		return nil, err
	}

	if err := c.conn.WriteEnvelope(Envelope{Type: TypeChatStream, RequestID: req.ID, Request: &req}); err != nil {
		c.registry.Remove(req.ID)
		return nil, fmt.Errorf("failed to send chat request: %w", err)
	}
	return sub, nil
}

// Run dispatches incoming envelopes until the connection ends or ctx is
// done. Subscriptions still open at that point end with ConnectionLostMessage
// unless the client was closed.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		env, err := c.conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, ErrMalformedEnvelope) {
				config.DebugLog.Warn("skipping malformed envelope", "err", err)
				continue
			}
			c.abandon()
			if errors.Is(err, io.EOF) || c.isClosed() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge read failed: %w", err)
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	event, err := env.Event()
	if err != nil {
		config.DebugLog.Warn("ignoring envelope", "err", err)
		return
	}

	sub := c.registry.Get(event.RequestID)
	if sub == nil {
		config.DebugLog.Debug("dropping event for unknown request", "id", event.RequestID, "type", env.Type)
		return
	}

	h := sub.handlers
	switch event.Kind {
	case model.EventFragment:
		if h.OnFragment != nil {
			h.OnFragment(event.Text)
		}
	case model.EventDone:
		sub.finish(func() {
			if h.OnDone != nil {
				h.OnDone()
			}
		})
	case model.EventError:
		sub.finish(func() {
			if h.OnError != nil {
				h.OnError(event.Message)
			}
		})
	}
}

// abandon ends every open subscription with ConnectionLostMessage.
func (c *Client) abandon() {
	for _, sub := range c.registry.snapshot() {
		h := sub.handlers
		sub.finish(func() {
			if h.OnError != nil {
				h.OnError(ConnectionLostMessage)
			}
		})
	}
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close detaches every subscription without calling its handlers and closes
// the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		for _, sub := range c.registry.snapshot() {
			sub.Close()
		}
		err = c.conn.Close()
	})
	return err
}
