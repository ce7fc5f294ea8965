package wstransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agent-bridge-go/internal/config"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
)

var upgrader = websocket.Upgrader{}

type handshake struct {
	authorization string
	clientID      string
	team          string
}

// newBridgeServer starts a WebSocket server that reports each handshake
// and then runs serve on the upgraded connection.
func newBridgeServer(t *testing.T, serve func(ws *websocket.Conn)) (string, <-chan handshake) {
	t.Helper()

	handshakes := make(chan handshake, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshakes <- handshake{
			authorization: r.Header.Get("Authorization"),
			clientID:      r.Header.Get(ClientIDHeader),
			team:          r.Header.Get("X-Team"),
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		serve(ws)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), handshakes
}

// echoResponses answers every request frame with {"echo": <action>}.
func echoResponses(codec frame.Codec) func(ws *websocket.Conn) {
	return func(ws *websocket.Conn) {
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			req, err := codec.Decode(data)
			if err != nil {
				return
			}

			out, err := codec.Encode(&frame.Frame{
				ID:   req.ID,
				Type: frame.TypeResponse,
				Data: map[string]any{"echo": req.Action},
			})
			if err != nil {
				return
			}

			if err := ws.WriteMessage(mt, out); err != nil {
				return
			}
		}
	}
}

func newDialer(url string, codec frame.Codec) *Dialer {
	header := http.Header{}
	header.Set("X-Team", "tools")

	return NewDialer(slog.New(slog.DiscardHandler), &config.Options{
		URL:    url,
		Token:  "secret",
		Header: header,
		Codec:  codec,
	})
}

func roundTrip(t *testing.T, codec frame.Codec) {
	t.Helper()

	url, handshakes := newBridgeServer(t, echoResponses(codec))
	dialer := newDialer(url, codec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := dialer.Dial(ctx)
	require.NoError(t, err)

	defer conn.Close()

	hs := <-handshakes
	require.Equal(t, "Bearer secret", hs.authorization)
	require.Equal(t, dialer.ClientID(), hs.clientID)
	require.Equal(t, "tools", hs.team)

	messages, errs := conn.ReadMessages(ctx)

	req := frame.NewRequest("req-1", "search", map[string]any{"q": "go"}, time.UnixMilli(1700000000000))
	data, err := codec.Encode(&req)
	require.NoError(t, err)
	require.NoError(t, conn.SendMessage(ctx, data))

	select {
	case msg := <-messages:
		resp, err := codec.Decode(msg)
		require.NoError(t, err)
		require.Equal(t, "req-1", resp.ID)
		require.Equal(t, frame.KindResponse, resp.Kind())
		require.Equal(t, "search", resp.DataMap()["echo"])
	case err := <-errs:
		t.Fatalf("unexpected read error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for response")
	}
}

func TestRoundTripJSON(t *testing.T) {
	roundTrip(t, frame.JSON{})
}

func TestRoundTripCBOR(t *testing.T) {
	codec, err := frame.NewCBOR()
	require.NoError(t, err)

	roundTrip(t, codec)
}

func TestPeerCloseEndsReadWithoutError(t *testing.T) {
	url, _ := newBridgeServer(t, func(ws *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	conn, err := newDialer(url, frame.JSON{}).Dial(context.Background())
	require.NoError(t, err)

	defer conn.Close()

	messages, errs := conn.ReadMessages(context.Background())

	select {
	case _, ok := <-messages:
		require.False(t, ok, "message channel should be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}

	err, ok := <-errs
	require.False(t, ok)
	require.NoError(t, err)
}

func TestAbruptDropReportsError(t *testing.T) {
	url, _ := newBridgeServer(t, func(ws *websocket.Conn) {
		_ = ws.UnderlyingConn().Close()
	})

	conn, err := newDialer(url, frame.JSON{}).Dial(context.Background())
	require.NoError(t, err)

	defer conn.Close()

	_, errs := conn.ReadMessages(context.Background())

	select {
	case err := <-errs:
		require.ErrorContains(t, err, "websocket read")
	case <-time.After(5 * time.Second):
		t.Fatal("no read error reported")
	}
}

func TestPing(t *testing.T) {
	url, _ := newBridgeServer(t, func(ws *websocket.Conn) {
		// Reading lets the default ping handler answer with a pong.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, err := newDialer(url, frame.JSON{}).Dial(context.Background())
	require.NoError(t, err)

	defer c.Close()

	conn := c.(*Conn)
	conn.ReadMessages(context.Background())

	require.NoError(t, conn.Ping(context.Background()))
	require.Eventually(t, func() bool { return !conn.awaitingPong.Load() }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Ping(context.Background()))
}

func TestPingWithoutPong(t *testing.T) {
	url, _ := newBridgeServer(t, func(ws *websocket.Conn) {
		// Never reads, so pings are never answered.
		time.Sleep(500 * time.Millisecond)
	})

	c, err := newDialer(url, frame.JSON{}).Dial(context.Background())
	require.NoError(t, err)

	defer c.Close()

	conn := c.(*Conn)
	require.NoError(t, conn.Ping(context.Background()))
	require.ErrorIs(t, conn.Ping(context.Background()), ErrPongTimeout)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := newDialer("ws"+strings.TrimPrefix(srv.URL, "http"), frame.JSON{}).Dial(context.Background())
	require.ErrorContains(t, err, "status 404")
}

func TestCloseIsIdempotent(t *testing.T) {
	url, _ := newBridgeServer(t, echoResponses(frame.JSON{}))

	conn, err := newDialer(url, frame.JSON{}).Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}
