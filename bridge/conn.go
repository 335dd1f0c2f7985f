package bridge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultMaxEnvelopeBytes bounds one envelope when no limit is configured. A
// request carries the whole conversation plus the page text of the document.
const DefaultMaxEnvelopeBytes = 64 << 20

// headBytes is how much of an oversized envelope is kept to recover its
// request ID.
const headBytes = 4 << 10

// ErrEnvelopeTooLarge is matched by the *TooLargeError a Conn returns for an
// envelope over its limit. The oversized envelope has been discarded and the
// connection stays usable.
var ErrEnvelopeTooLarge = errors.New("bridge: envelope too large")

// TooLargeError reports a discarded envelope. RequestID is recovered from the
// start of the envelope when it appears there.
type TooLargeError struct {
	RequestID string
	Limit     int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("bridge: envelope exceeds %d bytes", e.Limit)
}

func (e *TooLargeError) Unwrap() []error {
	return []error{ErrEnvelopeTooLarge, ErrMalformedEnvelope}
}

// Conn is a bidirectional envelope stream. ReadEnvelope is called from a
// single goroutine; WriteEnvelope and Close may be called concurrently.
type Conn interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(Envelope) error
	Close() error
}

type connOptions struct {
	maxEnvelopeBytes int
}

// ConnOption configures a Conn.
type ConnOption func(*connOptions)

// WithMaxEnvelopeBytes sets the largest envelope a Conn accepts. Values of
// zero or less keep DefaultMaxEnvelopeBytes.
func WithMaxEnvelopeBytes(n int) ConnOption {
	return func(o *connOptions) {
		if n > 0 {
			o.maxEnvelopeBytes = n
		}
	}
}

func applyConnOptions(opts []ConnOption) connOptions {
	o := connOptions{maxEnvelopeBytes: DefaultMaxEnvelopeBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type stdioConn struct {
	reader *bufio.Reader
	limit  int
	r      io.Reader
	w      io.Writer

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewStdioConn speaks newline-delimited JSON over r and w, typically the
// relay process's stdin and stdout.
func NewStdioConn(r io.Reader, w io.Writer, opts ...ConnOption) Conn {
	o := applyConnOptions(opts)
	return &stdioConn{
		reader: bufio.NewReaderSize(r, 64*1024),
		limit:  o.maxEnvelopeBytes,
		r:      r,
		w:      w,
	}
}

func (c *stdioConn) ReadEnvelope() (Envelope, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return Envelope{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return env, nil
	}
}

// readLine returns the next line without its newline. A line longer than the
// limit is consumed to its end and reported as a *TooLargeError.
func (c *stdioConn) readLine() ([]byte, error) {
	var line []byte
	tooLarge := false
	for {
		frag, err := c.reader.ReadSlice('\n')
		content := bytes.TrimSuffix(frag, []byte{'\n'})
		if !tooLarge {
			if room := c.limit - len(line); len(content) > room {
				line = append(line, content[:room]...)
				tooLarge = true
			} else {
				line = append(line, content...)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0 && !tooLarge:
			return line, nil
		default:
			return nil, err
		}

		if tooLarge {
			return nil, &TooLargeError{RequestID: peekRequestID(line[:min(len(line), headBytes)]), Limit: c.limit}
		}
		return line, nil
	}
}

func (c *stdioConn) WriteEnvelope(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", env.Type, err)
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(data)
	return err
}

func (c *stdioConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if rc, ok := c.r.(io.Closer); ok {
			err = rc.Close()
		}
		if wc, ok := c.w.(io.Closer); ok {
			if werr := wc.Close(); err == nil {
				err = werr
			}
		}
	})
	return err
}

type wsConn struct {
	conn  *websocket.Conn
	limit int
	mu    sync.Mutex
}

// NewWSConn carries one envelope per WebSocket text frame.
func NewWSConn(conn *websocket.Conn, opts ...ConnOption) Conn {
	o := applyConnOptions(opts)
	return &wsConn{conn: conn, limit: o.maxEnvelopeBytes}
}

func (c *wsConn) ReadEnvelope() (Envelope, error) {
	_, r, err := c.conn.NextReader()
	if err != nil {
		return Envelope{}, wsReadError(err)
	}

	// The frame is read up to the limit; the rest is drained so the
	// connection can carry the next envelope.
	data, err := io.ReadAll(io.LimitReader(r, int64(c.limit)+1))
	if err != nil {
		return Envelope{}, wsReadError(err)
	}
	if len(data) > c.limit {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return Envelope{}, wsReadError(err)
		}
		return Envelope{}, &TooLargeError{RequestID: peekRequestID(data[:min(len(data), headBytes)]), Limit: c.limit}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env, nil
}

func wsReadError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return err
}

func (c *wsConn) WriteEnvelope(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(env)
}

func (c *wsConn) Close() error {
	// WriteControl may run concurrently with WriteJSON.
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// peekRequestID reads the top-level "requestId" from the start of an
// envelope. Encoded envelopes put it ahead of the request body.
func peekRequestID(head []byte) string {
	dec := json.NewDecoder(bytes.NewReader(head))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	for {
		key, err := dec.Token()
		if err != nil {
			return ""
		}
		name, ok := key.(string)
		if !ok {
			return ""
		}
		val, err := dec.Token()
		if err != nil {
			return ""
		}
		if name == "requestId" {
			id, _ := val.(string)
			return id
		}
		if _, nested := val.(json.Delim); nested {
			return ""
		}
	}
}
