package agentbridge_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

const testToken = "secret"

// newBridge starts a WebSocket bridge that understands a few test actions:
//
//	echo   responds with {"echo": data}
//	stream sends two chunks, then a stream_response
//	fail   responds with an error payload
//	hang   drops the connection without answering
//
// It pushes a "hello" event right after the handshake.
func newBridge(t *testing.T, codec agentbridge.Codec) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	messageType := websocket.TextMessage

	if codec.Binary() {
		messageType = websocket.BinaryMessage
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		write := func(f agentbridge.Frame) bool {
			data, err := codec.Encode(&f)
			if err != nil {
				return false
			}

			return ws.WriteMessage(messageType, data) == nil
		}

		if !write(agentbridge.Frame{Type: "hello", Data: map[string]any{"version": "1"}}) {
			return
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			req, err := codec.Decode(data)
			if err != nil {
				return
			}

			var frames []agentbridge.Frame

			switch req.Action {
			case "echo":
				frames = append(frames, agentbridge.Frame{
					ID: req.ID, Type: "response", Data: map[string]any{"echo": req.Data},
				})
			case "stream":
				frames = append(frames,
					agentbridge.Frame{ID: req.ID, Type: "streaming_chunk", Data: map[string]any{"chunk": "Hello, "}},
					agentbridge.Frame{ID: req.ID, Type: "streaming_chunk", Data: map[string]any{"chunk": "world"}},
					agentbridge.Frame{ID: req.ID, Type: "stream_response", Data: map[string]any{"words": 2}},
				)
			case "fail":
				frames = append(frames, agentbridge.Frame{
					ID: req.ID, Type: "response", Data: map[string]any{"error": map[string]any{"message": "nope"}},
				})
			case "hang":
				_ = ws.UnderlyingConn().Close()

				return
			}

			for _, f := range frames {
				if !write(f) {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_WebSocketRoundTrip(t *testing.T) {
	for _, name := range []string{"json", "cbor"} {
		t.Run(name, func(t *testing.T) {
			codec, err := agentbridge.LookupCodec(name)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := agentbridge.New(
				agentbridge.WithURL(newBridge(t, codec)),
				agentbridge.WithToken(testToken),
				agentbridge.WithCodec(codec),
				agentbridge.WithRequestTimeout(5*time.Second),
			)
			require.NoError(t, err)

			defer client.Close()

			events := make(chan *agentbridge.Frame, 1)
			client.OnEvent(func(f *agentbridge.Frame) { events <- f })

			connected := make(chan struct{}, 1)
			client.OnConnected(func() { connected <- struct{}{} })

			require.NoError(t, client.Connect(ctx))
			require.True(t, client.IsConnected())
			require.Equal(t, agentbridge.StateConnected, client.State())

			select {
			case <-connected:
			default:
				t.Fatal("connected was not emitted during Connect")
			}

			select {
			case ev := <-events:
				require.Equal(t, "hello", ev.Type)
			case <-ctx.Done():
				t.Fatal("hello event not delivered")
			}

			result, err := client.Send(ctx, "echo", map[string]any{"n": "x"})
			require.NoError(t, err)
			require.Equal(t, map[string]any{"n": "x"}, result["echo"])

			var streamed strings.Builder

			result, err = client.Send(ctx, "stream", nil,
				agentbridge.WithChunkHandler(func(chunk string) { streamed.WriteString(chunk) }),
			)
			require.NoError(t, err)
			require.Equal(t, "Hello, world", streamed.String())
			require.EqualValues(t, 2, result["words"])

			_, err = client.Send(ctx, "fail", nil)
			remoteErr, ok := errors.AsType[*agentbridge.RemoteError](err)
			require.True(t, ok, "expected RemoteError, got %v", err)
			require.Equal(t, "nope", remoteErr.Message)

			require.Zero(t, client.PendingCount())
		})
	}
}

func TestClient_ConnectionDropRejectsPending(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := agentbridge.New(
		agentbridge.WithURL(newBridge(t, agentbridge.JSONCodec{})),
		agentbridge.WithToken(testToken),
		agentbridge.WithMaxReconnectAttempts(-1),
	)
	require.NoError(t, err)

	defer client.Close()

	disconnected := make(chan error, 1)
	client.OnDisconnected(func(err error) { disconnected <- err })

	require.NoError(t, client.Connect(ctx))

	_, err = client.Send(ctx, "hang", nil)
	require.ErrorIs(t, err, agentbridge.ErrConnectionClosed)

	select {
	case err := <-disconnected:
		require.ErrorIs(t, err, agentbridge.ErrConnectionClosed)
	case <-ctx.Done():
		t.Fatal("disconnected not emitted")
	}

	require.False(t, client.IsConnected())

	_, err = client.Send(ctx, "echo", nil)
	require.ErrorIs(t, err, agentbridge.ErrNotConnected)
}

func TestClient_Unauthorized(t *testing.T) {
	client, err := agentbridge.New(
		agentbridge.WithURL(newBridge(t, agentbridge.JSONCodec{})),
		agentbridge.WithToken("wrong"),
		agentbridge.WithMaxReconnectAttempts(-1),
	)
	require.NoError(t, err)

	defer client.Close()

	err = client.Connect(context.Background())

	connErr, ok := errors.AsType[*agentbridge.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)
	require.Contains(t, connErr.Error(), "401")
	require.Equal(t, agentbridge.StateDisconnected, client.State())
}

func TestSendAs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type echoed struct {
		Echo struct {
			Path string `json:"path"`
		} `json:"echo"`
	}

	err := agentbridge.WithClient(ctx, func(c agentbridge.Client) error {
		out, err := agentbridge.SendAs[echoed](ctx, c, "echo", map[string]any{"path": "main.go"})
		require.NoError(t, err)
		require.Equal(t, "main.go", out.Echo.Path)

		return nil
	},
		agentbridge.WithURL(newBridge(t, agentbridge.JSONCodec{})),
		agentbridge.WithToken(testToken),
	)
	require.NoError(t, err)
}
