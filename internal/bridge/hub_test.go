package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/event"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/loop"
	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

type queue struct {
	mu   sync.Mutex
	fns  []func()
	full bool
}

func (q *queue) Post(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return loop.ErrInboxFull
	}
	q.fns = append(q.fns, fn)
	return nil
}

func (q *queue) drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type harness struct {
	hub    *Hub
	queue  *queue
	clicks chan input.PointerEvent
	url    string
}

func newHarness(t *testing.T, origins []string, setup func(h *Hub)) *harness {
	t.Helper()
	h := &harness{queue: &queue{}, clicks: make(chan input.PointerEvent, 8)}
	h.hub = NewHub(h.queue, func(e input.PointerEvent) { h.clicks <- e }, origins, zap.NewNop())
	if setup != nil {
		setup(h.hub)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go h.hub.Run(ctx)
	srv := httptest.NewServer(h.hub)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	h.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestClickIsPostedToLoop(t *testing.T) {
	h := newHarness(t, nil, nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click", "x": 3.5, "y": 4}))
	require.Eventually(t, func() bool { return h.queue.drain() == 1 }, 2*time.Second, 5*time.Millisecond)

	select {
	case e := <-h.clicks:
		assert.Equal(t, input.PointerEvent{X: 3.5, Y: 4}, e)
	default:
		t.Fatal("click was not applied")
	}
}

func TestRejectedMessagesGetErrors(t *testing.T) {
	h := newHarness(t, nil, nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "teleport"}))
	msg = read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "teleport")

	h.queue.mu.Lock()
	h.queue.full = true
	h.queue.mu.Unlock()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "click"}))
	msg = read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "queue full")
}

func TestStageChangesAreBroadcast(t *testing.T) {
	rec := stage.NewRecorder(zap.NewNop())
	rec.ShowSpeaker(stage.Speaker{Name: "Elder", Position: 0.3, Orientation: stage.OrientationRight})
	h := newHarness(t, nil, func(hub *Hub) { hub.AttachStage(rec) })

	conn := h.dial(t)
	msg := read(t, conn)
	require.Equal(t, TypeStageState, msg.Type)
	var state StageState
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	require.Len(t, state.Speakers, 1)
	assert.Equal(t, "Elder", state.Speakers[0].Name)
	assert.Contains(t, string(msg.Data), `"orientation":"right"`)

	rec.SetDialogueText("Welcome.")
	msg = read(t, conn)
	require.Equal(t, TypeStageChange, msg.Type)
	var change stage.Change
	require.NoError(t, json.Unmarshal(msg.Data, &change))
	assert.Equal(t, stage.ChangeDialogueText, change.Kind)
	assert.Equal(t, "Welcome.", change.Text)
}

func TestScriptNotices(t *testing.T) {
	m := event.NewManager(zap.NewNop())
	rec := stage.NewRecorder(nil)
	h := newHarness(t, nil, func(hub *Hub) {
		hub.AttachStage(rec)
		hub.AttachManager(m)
	})
	conn := h.dial(t)
	require.Equal(t, TypeStageState, read(t, conn).Type)

	require.NoError(t, m.BeginScript(nil, script.Delay{}))
	m.Tick(command.Tick{Number: 1})
	msg := read(t, conn)
	require.Equal(t, TypeScriptComplete, msg.Type)
	var notice ScriptNotice
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	assert.Equal(t, string(script.KindDelay), notice.Kind)
	assert.Equal(t, uint64(1), notice.Ticks)

	require.NoError(t, m.BeginScript(nil, script.Delay{Seconds: 10}))
	m.Abort("test over")
	msg = read(t, conn)
	require.Equal(t, TypeScriptAborted, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	assert.Equal(t, "test over", notice.Reason)
}

func TestOriginCheck(t *testing.T) {
	h := newHarness(t, []string{"http://game.local"}, nil)

	_, resp, err := websocket.DefaultDialer.Dial(h.url, http.Header{"Origin": {"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(h.url, http.Header{"Origin": {"http://game.local"}})
	require.NoError(t, err)
	conn.Close()
}

func TestBroadcastAfterStop(t *testing.T) {
	hub := NewHub(&queue{}, func(input.PointerEvent) {}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	assert.NoError(t, hub.Broadcast(TypeStageChange, "x"))
	cancel()
	<-done
	assert.ErrorIs(t, hub.Broadcast(TypeStageChange, "x"), ErrHubStopped)
}
