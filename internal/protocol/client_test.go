package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
	logger "github.com/fnos-tools/fnauth/internal/logging"
)

// startServer runs a websocket endpoint that hands each accepted
// connection to serve. Returns the host[:port] the client should dial.
func startServer(t *testing.T, serve func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		serve(r.Context(), conn)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func newTestClient(timeout time.Duration) *Client {
	return NewClient(Options{
		Timeout: timeout,
		UseSSL:  false,
		Logger:  logger.Logger{},
	})
}

// reqidOf extracts the reqid from a frame, skipping a signature prefix
// when present.
func reqidOf(t *testing.T, data []byte) string {
	t.Helper()
	if len(data) > 0 && data[0] != '{' {
		data = data[44:]
	}
	var head struct {
		Reqid string `json:"reqid"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		t.Fatalf("frame is not JSON: %v (%q)", err, data)
	}
	return head.Reqid
}

func TestNextReqIDFormat(t *testing.T) {
	c := newTestClient(time.Second)

	first := c.nextReqID()
	second := c.nextReqID()

	pattern := regexp.MustCompile(`^[0-9a-f]{8}0{16}[0-9a-f]{4}$`)
	if !pattern.MatchString(first) {
		t.Errorf("unexpected reqid format: %q", first)
	}
	if !strings.HasSuffix(first, "0001") {
		t.Errorf("counter should start at 1, got %q", first)
	}
	if !strings.HasSuffix(second, "0002") {
		t.Errorf("counter should increment, got %q", second)
	}
}

func TestGetRSAPub(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req struct {
			Req   string `json:"req"`
			Reqid string `json:"reqid"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			t.Errorf("request is not bare JSON: %v", err)
			return
		}
		if req.Req != "util.crypto.getRSAPub" {
			t.Errorf("unexpected request %q", req.Req)
		}
		resp, _ := json.Marshal(map[string]string{
			"reqid": req.Reqid,
			"pub":   "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----",
			"si":    "session-identifier",
		})
		_ = conn.Write(ctx, websocket.MessageText, resp)
	})

	c := newTestClient(5 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	key, err := c.GetRSAPub(ctx)
	if err != nil {
		t.Fatalf("GetRSAPub failed: %v", err)
	}
	if key.SI != "session-identifier" {
		t.Errorf("unexpected si %q", key.SI)
	}
	if !strings.Contains(key.Pub, "PUBLIC KEY") {
		t.Errorf("unexpected pub %q", key.Pub)
	}
}

func TestOutOfOrderResponses(t *testing.T) {
	// The server answers the second request first; each caller must still
	// receive its own response.
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		var reqids []string
		for len(reqids) < 2 {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			reqids = append(reqids, reqidOf(t, data))
		}
		for i := len(reqids) - 1; i >= 0; i-- {
			resp, _ := json.Marshal(map[string]string{"reqid": reqids[i], "si": reqids[i]})
			if err := conn.Write(ctx, websocket.MessageText, resp); err != nil {
				return
			}
		}
	})

	c := newTestClient(5 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	type result struct {
		si  string
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			si, err := c.GetSI(ctx)
			results <- result{si, err}
		}()
		// Serialize the sends so the server sees a deterministic order.
		time.Sleep(50 * time.Millisecond)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("GetSI failed: %v", r.err)
		}
		if seen[r.si] {
			t.Errorf("two callers received the same response %q", r.si)
		}
		seen[r.si] = true
	}
}

func TestRequestTimeout(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		// Swallow the request and never answer.
		_, _, _ = conn.Read(ctx)
		<-ctx.Done()
	})

	c := newTestClient(200 * time.Millisecond)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	_, err := c.GetSI(ctx)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, kerrors.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	// The timed-out entry must be gone from the pending table.
	c.mu.Lock()
	remaining := len(c.pending)
	c.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected empty pending table, found %d entries", remaining)
	}
}

func TestCloseFailsPending(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_, _, _ = conn.Read(ctx)
		<-ctx.Done()
	})

	c := newTestClient(10 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetSI(ctx)
		errCh <- err
	}()

	time.Sleep(100 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, kerrors.ErrConnectionClosed) {
			t.Errorf("expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pending request was not failed by Close")
	}
}

func TestServerErrnoMapsToProtocolError(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		resp, _ := json.Marshal(map[string]interface{}{
			"reqid": reqidOf(t, data),
			"errno": 5001,
			"msg":   "internal failure",
		})
		_ = conn.Write(ctx, websocket.MessageText, resp)
	})

	c := newTestClient(5 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	_, err := c.GetSI(ctx)
	if err == nil {
		t.Fatal("expected error for errno response")
	}
	if !errors.Is(err, kerrors.ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
	if !strings.Contains(err.Error(), "internal failure") {
		t.Errorf("expected server message in error, got %v", err)
	}
}

func TestAuthTokenErrnoMapsToAuthError(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			reqid := reqidOf(t, data)
			var resp []byte
			if strings.Contains(string(data), "getRSAPub") {
				resp, _ = json.Marshal(map[string]string{"reqid": reqid, "pub": "PEM", "si": "si-1"})
			} else {
				resp, _ = json.Marshal(map[string]interface{}{"reqid": reqid, "errno": 401, "error": "token expired"})
			}
			if err := conn.Write(ctx, websocket.MessageText, resp); err != nil {
				return
			}
		}
	})

	c := newTestClient(5 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	c.Resume("stale-token", "")
	_, err := c.AuthToken(ctx, true)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !errors.Is(err, kerrors.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestAuthTokenWithoutResume(t *testing.T) {
	c := newTestClient(time.Second)
	_, err := c.AuthToken(context.Background(), true)
	if !errors.Is(err, kerrors.ErrAuth) {
		t.Errorf("expected ErrAuth without a resumed token, got %v", err)
	}
}

func TestSendWithoutConnect(t *testing.T) {
	c := newTestClient(time.Second)
	_, err := c.GetSI(context.Background())
	if !errors.Is(err, kerrors.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestUnknownReqidDropped(t *testing.T) {
	host := startServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		reqid := reqidOf(t, data)
		// Server chatter with no matching request must not confuse the
		// waiter.
		noise, _ := json.Marshal(map[string]string{"reqid": "ffffffff0000000000000000ffff"})
		_ = conn.Write(ctx, websocket.MessageText, noise)
		resp, _ := json.Marshal(map[string]string{"reqid": reqid, "si": "real"})
		_ = conn.Write(ctx, websocket.MessageText, resp)
	})

	c := newTestClient(5 * time.Second)
	ctx := context.Background()
	if err := c.Connect(ctx, host); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	si, err := c.GetSI(ctx)
	if err != nil {
		t.Fatalf("GetSI failed: %v", err)
	}
	if si != "real" {
		t.Errorf("expected the matching response, got %q", si)
	}
}
