package protocol

import (
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
)

// eventSink collects forwarded frames.
type eventSink struct {
	mu     sync.Mutex
	frames []*frame.Frame
}

func (s *eventSink) onEvent(f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, f)
}

func (s *eventSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		types = append(types, f.Type)
	}

	return types
}

func newTestRouter(t *testing.T) (*Router, *Engine, *eventSink) {
	t.Helper()

	engine, _ := newTestEngine(t)
	sink := &eventSink{}

	return NewRouter(slog.Default(), frame.JSON{}, engine, sink.onEvent, metrics.Nop{}), engine, sink
}

func TestRouter_ResponseResolves(t *testing.T) {
	router, engine, _ := newTestRouter(t)

	rec := &recorder{}
	id := engine.Register("compute", rec.complete, nil, time.Minute)

	router.Route([]byte(`{"id":"` + id + `","type":"response","data":{"value":42}}`))

	outcomes, _ := rec.snapshot()
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].err)
	require.Equal(t, map[string]any{"value": float64(42)}, outcomes[0].result)

	// Duplicate terminal frame is dropped without error.
	require.NotPanics(t, func() {
		router.Route([]byte(`{"id":"` + id + `","type":"response","data":{"value":42}}`))
	})

	outcomes, _ = rec.snapshot()
	require.Len(t, outcomes, 1)
	require.Equal(t, 0, engine.Len())
}

func TestRouter_NonObjectResponseKeepsPayload(t *testing.T) {
	router, engine, _ := newTestRouter(t)

	tests := []struct {
		name string
		data string
		want map[string]any
	}{
		{name: "array", data: `[1,2,3]`, want: map[string]any{"value": []any{float64(1), float64(2), float64(3)}}},
		{name: "string", data: `"done"`, want: map[string]any{"value": "done"}},
		{name: "number", data: `7`, want: map[string]any{"value": float64(7)}},
		{name: "bool", data: `false`, want: map[string]any{"value": false}},
		{name: "null", data: `null`, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			id := engine.Register("list", rec.complete, nil, time.Minute)

			router.Route([]byte(`{"id":"` + id + `","type":"response","data":` + tc.data + `}`))

			outcomes, _ := rec.snapshot()
			require.Len(t, outcomes, 1)
			require.NoError(t, outcomes[0].err)
			require.Equal(t, tc.want, outcomes[0].result)
		})
	}
}

func TestRouter_ActionSuffixResponse(t *testing.T) {
	router, engine, sink := newTestRouter(t)

	rec := &recorder{}
	id := engine.Register("analyze_project", rec.complete, nil, time.Minute)

	router.Route([]byte(`{"id":"` + id + `","type":"analyze_project_response","data":{"files":3}}`))

	outcomes, _ := rec.snapshot()
	require.Len(t, outcomes, 1)
	require.Equal(t, map[string]any{"files": float64(3)}, outcomes[0].result)
	require.Empty(t, sink.types())
}

func TestRouter_ErrorResponseRejects(t *testing.T) {
	router, engine, _ := newTestRouter(t)

	rec := &recorder{}
	id := engine.Register("create_task", rec.complete, nil, time.Minute)

	router.Route([]byte(`{"id":"` + id + `","type":"response","data":{"error":{"message":"quota exceeded","details":{"limit":5}}}}`))

	outcomes, _ := rec.snapshot()
	require.Len(t, outcomes, 1)

	remoteErr, ok := stderrors.AsType[*errors.RemoteError](outcomes[0].err)
	require.True(t, ok)
	require.Equal(t, "quota exceeded", remoteErr.Message)
	require.Equal(t, id, remoteErr.RequestID)
	require.Equal(t, map[string]any{"limit": float64(5)}, remoteErr.Details)
}

func TestRouter_StreamingChunksThenResponse(t *testing.T) {
	router, engine, _ := newTestRouter(t)

	rec := &recorder{}
	id := engine.Register("generate", rec.complete, rec.chunk, time.Minute)

	router.Route([]byte(`{"id":"` + id + `","type":"streaming_chunk","data":{"chunk":"Hello, "}}`))
	router.Route([]byte(`{"id":"` + id + `","type":"streaming_chunk","data":{"chunk":"world"}}`))
	router.Route([]byte(`{"id":"` + id + `","type":"response","data":{"text":"Hello, world"}}`))

	outcomes, chunks := rec.snapshot()
	require.Equal(t, []string{"Hello, ", "world"}, chunks)
	require.Len(t, outcomes, 1)
	require.Equal(t, map[string]any{"text": "Hello, world"}, outcomes[0].result)
	require.Equal(t, 0, engine.Len())
}

func TestRouter_UnsolicitedEventForwarded(t *testing.T) {
	router, _, sink := newTestRouter(t)

	router.Route([]byte(`{"type":"file_changed","data":{"path":"main.go"}}`))
	router.Route([]byte(`{"id":"server-push","type":"task_progress","data":{"pct":50}}`))

	require.Equal(t, []string{"file_changed", "task_progress"}, sink.types())

	sink.mu.Lock()
	defer sink.mu.Unlock()

	require.Equal(t, map[string]any{"path": "main.go"}, sink.frames[0].DataMap())
}

func TestRouter_CorrelatedFrameWithoutIDForwarded(t *testing.T) {
	router, _, sink := newTestRouter(t)

	router.Route([]byte(`{"type":"response","data":{"orphan":true}}`))

	require.Equal(t, []string{"response"}, sink.types())
}

func TestRouter_MalformedFrameDropped(t *testing.T) {
	router, engine, sink := newTestRouter(t)

	rec := &recorder{}
	engine.Register("pending", rec.complete, nil, time.Minute)

	require.NotPanics(t, func() {
		router.Route([]byte(`{"id":`))
		router.Route([]byte(`not json at all`))
		router.Route([]byte(`{"data":{}}`))
	})

	outcomes, _ := rec.snapshot()
	require.Empty(t, outcomes, "malformed frames never touch pending requests")
	require.Empty(t, sink.types())
	require.Equal(t, 1, engine.Len())
}

func TestRouter_UnknownIDsDropped(t *testing.T) {
	router, _, sink := newTestRouter(t)

	require.NotPanics(t, func() {
		router.Route([]byte(`{"id":"gone","type":"response","data":{}}`))
		router.Route([]byte(`{"id":"gone","type":"streaming_chunk","data":{"chunk":"x"}}`))
	})

	require.Empty(t, sink.types())
}

func TestRouter_ChunkMissingField(t *testing.T) {
	router, engine, _ := newTestRouter(t)

	rec := &recorder{}
	id := engine.Register("generate", rec.complete, rec.chunk, time.Minute)

	router.Route([]byte(`{"id":"` + id + `","type":"streaming_chunk","data":{}}`))

	_, chunks := rec.snapshot()
	require.Empty(t, chunks)
	require.Equal(t, 1, engine.Len())
}
