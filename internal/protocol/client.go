package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
	logger "github.com/fnos-tools/fnauth/internal/logging"
	"github.com/fnos-tools/fnauth/internal/wire"
)

const (
	maxReadBytes  = 1 << 20 // 1MiB
	defaultBackID = "0000000000000000"
)

// Options configures a protocol client.
type Options struct {
	// Timeout bounds both connection establishment and each request's wait
	// for a response. Zero means 30 seconds.
	Timeout time.Duration

	// UseSSL selects wss:// and sends the relay cookie. Direct LAN
	// connections use plain ws://.
	UseSSL bool

	// Cookie is sent on the handshake when UseSSL is set (fn connect relay
	// requires it).
	Cookie string

	Logger logger.Logger
}

// Client owns one WebSocket connection to one fnOS server. It frames and
// signs outgoing requests, correlates inbound frames to callers by request
// id, and exposes the typed protocol operations.
//
// A Client is safe for concurrent requests on one connection. It is not
// reusable: after Close, create a new Client to reconnect.
type Client struct {
	timeout time.Duration
	useSSL  bool
	cookie  string
	log     logger.Logger

	conn       *websocket.Conn
	cancelRead context.CancelFunc
	readDone   chan struct{}

	// mu guards the pending table, the request counter, and the session
	// fields below. The read loop is the only goroutine that resolves
	// pending entries; senders only enqueue and (on timeout) remove their
	// own entry.
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
	counter uint32
	closed  bool

	// Per-connection encryption state, regenerated on every Connect.
	sessionKey string
	iv         []byte

	// Server handshake state.
	pub string
	si  string

	// Session state, populated by Login/TokenLogin/AuthToken or injected
	// from persisted tokens via Resume.
	backID  string
	token   string
	signKey string
}

// NewClient creates a disconnected client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		timeout: timeout,
		useSSL:  opts.UseSSL,
		cookie:  opts.Cookie,
		log:     opts.Logger,
		pending: make(map[string]chan json.RawMessage),
		backID:  defaultBackID,
	}
}

// Connect dials the server's WebSocket endpoint and starts the receive
// loop. A fresh AES session key and IV are generated for the connection;
// nothing from a previous connection is reused.
func (c *Client) Connect(ctx context.Context, server string) error {
	c.mu.Lock()
	if c.conn != nil || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: client already connected or closed", kerrors.ErrConnection)
	}
	c.mu.Unlock()

	sessionKey, err := wire.RandomKey(32)
	if err != nil {
		return err
	}
	iv, err := wire.RandomIV()
	if err != nil {
		return err
	}

	scheme := "ws"
	header := http.Header{}
	if c.useSSL {
		scheme = "wss"
		if c.cookie != "" {
			header.Set("Cookie", c.cookie)
		}
	}
	url := fmt.Sprintf("%s://%s/websocket?type=main", scheme, server)

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", kerrors.ErrConnection, server, err)
	}
	conn.SetReadLimit(maxReadBytes)

	readCtx, cancelRead := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancelRead = cancelRead
	c.readDone = make(chan struct{})
	c.sessionKey = sessionKey
	c.iv = iv
	c.mu.Unlock()

	go c.readLoop(readCtx)

	c.log.Debugf("connected to %s", server)
	return nil
}

// Close shuts down the connection. Every still-pending request fails with
// ErrConnectionClosed. Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	cancelRead := c.cancelRead
	readDone := c.readDone
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	if cancelRead != nil {
		cancelRead()
	}
	if readDone != nil {
		<-readDone
	}

	c.log.Debugf("connection closed")
}

// Connected reports whether the client currently holds an open connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Resume injects a persisted session token and sign key so that AuthToken
// and subsequent signed requests can run on a fresh connection without a
// password login.
func (c *Client) Resume(token, signKey string) {
	c.mu.Lock()
	c.token = token
	c.signKey = signKey
	c.mu.Unlock()
}

// readLoop is the single resolver of pending requests: it decodes each
// inbound text frame and hands it to the matching waiter. Frames with no
// matching id, and frames that are not JSON objects, are dropped.
func (c *Client) readLoop(ctx context.Context) {
	defer close(c.readDone)
	defer c.failPending()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debugf("receive loop ended: %v", err)
			}
			return
		}

		var head struct {
			Reqid string `json:"reqid"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			c.log.Debugf("dropping malformed frame: %v", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[head.Reqid]
		if ok {
			delete(c.pending, head.Reqid)
		}
		c.mu.Unlock()

		if !ok {
			// Late response to a timed-out request, or server chatter.
			c.log.Debugf("no pending request for reqid %q", head.Reqid)
			continue
		}
		ch <- json.RawMessage(data)
	}
}

// failPending resolves every outstanding request with a closed channel,
// which waiters surface as ErrConnectionClosed.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for reqid, ch := range c.pending {
		close(ch)
		delete(c.pending, reqid)
	}
}

// nextReqID generates a request id:
// hex(unix seconds, 8) + backId(16) + hex(counter, 4). The counter is
// per-connection and starts at 1. The server uses the id both for
// correlation and as a coarse ordering hint.
func (c *Client) nextReqID() string {
	c.mu.Lock()
	c.counter++
	n := c.counter
	backID := c.backID
	c.mu.Unlock()
	return fmt.Sprintf("%08x%s%04x", time.Now().Unix(), backID, n)
}

// roundTrip transmits a prepared frame and waits for the response matching
// reqid. The pending entry is registered before the write so a fast
// response cannot slip past the waiter. On timeout the entry is removed so
// a late response is silently dropped.
func (c *Client) roundTrip(ctx context.Context, kind, reqid string, frame []byte) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot send %s", kerrors.ErrNotConnected, kind)
	}
	conn := c.conn
	ch := make(chan json.RawMessage, 1)
	c.pending[reqid] = ch
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := conn.Write(reqCtx, websocket.MessageText, frame); err != nil {
		c.removePending(reqid)
		return nil, fmt.Errorf("%w: sending %s: %v", kerrors.ErrConnection, kind, err)
	}
	c.log.Debugf("sent %s (reqid %s)", kind, reqid)

	select {
	case raw, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w while waiting for %s", kerrors.ErrConnectionClosed, kind)
		}
		return raw, nil
	case <-reqCtx.Done():
		c.removePending(reqid)
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrTimeout, kind)
		}
		return nil, reqCtx.Err()
	}
}

func (c *Client) removePending(reqid string) {
	c.mu.Lock()
	delete(c.pending, reqid)
	c.mu.Unlock()
}
