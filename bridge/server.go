package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"opendocs/config"
	"opendocs/model"
	"opendocs/relay"
)

const (
	// InvalidRequestMessage answers a chat-stream envelope without a request.
	InvalidRequestMessage = "Invalid chat request."

	// RequestTooLargeMessage answers an envelope over the connection's limit.
	RequestTooLargeMessage = "Request too large. Try a shorter conversation or a smaller document."
)

// Server feeds envelopes from UI connections into a Relay.
type Server struct {
	Relay *relay.Relay

	// MaxEnvelopeBytes bounds envelopes read from WebSocket connections.
	// Zero means DefaultMaxEnvelopeBytes.
	MaxEnvelopeBytes int
}

// Serve reads envelopes from conn until it closes or ctx is done. Every
// chat-stream runs on its own goroutine so chat-cancel can be read while it
// streams. Exchanges still running when Serve returns are cancelled and
// awaited. conn is closed on return.
func (s *Server) Serve(ctx context.Context, conn Conn) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	inflight := newInflight()
	sink := connSink{conn: conn}

	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			var tooLarge *TooLargeError
			if errors.As(err, &tooLarge) {
				config.DebugLog.Warn("rejecting oversized envelope", "id", tooLarge.RequestID, "limit", tooLarge.Limit)
				reject(sink, tooLarge.RequestID, RequestTooLargeMessage)
				continue
			}
			if errors.Is(err, ErrMalformedEnvelope) {
				config.DebugLog.Warn("skipping malformed envelope", "err", err)
				continue
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge read failed: %w", err)
		}

		switch env.Type {
		case TypeChatStream:
			if env.Request == nil {
				reject(sink, env.RequestID, InvalidRequestMessage)
				continue
			}

			req := *env.Request
			if env.RequestID != "" {
				req.ID = env.RequestID
			}
			if req.ID == "" {
				req.ID = uuid.NewString()
			}

			// Any event for a reused ID would land on the live exchange.
			if !inflight.add(req.ID) {
				config.DebugLog.Warn("ignoring chat request with an in-flight id", "id", req.ID)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer inflight.remove(req.ID)

				err := s.Relay.HandleChatRequest(ctx, req, sink)
				if err != nil && !errors.Is(err, relay.ErrExchangeInProgress) {
					config.DebugLog.Warn("exchange ended with delivery error", "id", req.ID, "err", err)
				}
			}()

		case TypeChatCancel:
			// Only exchanges started on this connection can be stopped from it.
			for _, id := range inflight.match(env.RequestID) {
				s.Relay.Cancel(id)
			}

		default:
			config.DebugLog.Warn("ignoring unexpected envelope", "type", env.Type, "id", env.RequestID)
		}
	}
}

// reject answers a request that never reached the relay.
func reject(sink connSink, id, msg string) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := sink.Emit(model.Failure(id, msg)); err != nil {
		config.DebugLog.Warn("failed to reject request", "id", id, "err", err)
	}
}

type connSink struct {
	conn Conn
}

func (s connSink) Emit(e model.StreamEvent) error {
	return s.conn.WriteEnvelope(EnvelopeFor(e))
}

type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[string]struct{})}
}

// add reports false when id is already in flight.
func (f *inflight) add(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inflight) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}

// match returns id if it is in flight, or every in-flight id when id is empty.
func (f *inflight) match(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id != "" {
		if _, ok := f.ids[id]; ok {
			return []string{id}
		}
		return nil
	}
	ids := make([]string, 0, len(f.ids))
	for k := range f.ids {
		ids = append(ids, k)
	}
	return ids
}

// WebSocketHandler upgrades HTTP requests and serves each connection.
//
// Browsers always send an Origin header. Requests without one (native
// clients) are accepted, as are same-host origins and the allowedOrigins
// listed; anything else is refused so a web page cannot drive the relay.
func WebSocketHandler(s *Server, allowedOrigins ...string) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			config.DebugLog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		config.DebugLog.Debug("websocket client connected", "remote", r.RemoteAddr)
		if err := s.Serve(r.Context(), NewWSConn(ws, WithMaxEnvelopeBytes(s.MaxEnvelopeBytes))); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				config.DebugLog.Warn("websocket connection failed", "remote", r.RemoteAddr, "err", err)
			}
		}
		config.DebugLog.Debug("websocket client disconnected", "remote", r.RemoteAddr)
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(origin, a) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// ListenAndServe serves the WebSocket endpoint on addr at path until ctx is
// done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr, path string, s *Server, allowedOrigins ...string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return serveListener(ctx, ln, path, s, allowedOrigins...)
}

func serveListener(ctx context.Context, ln net.Listener, path string, s *Server, allowedOrigins ...string) error {
	mux := http.NewServeMux()
	mux.Handle(path, WebSocketHandler(s, allowedOrigins...))

	// Hijacked connections are invisible to Shutdown; deriving request
	// contexts from ctx is what closes them.
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	config.DebugLog.Info("websocket relay listening", "addr", ln.Addr().String(), "path", path)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
