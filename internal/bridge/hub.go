// Package bridge connects remote front ends to the engine over websockets.
// Clients send pointer clicks; the hub broadcasts stage changes and script
// lifecycle notices to every connected client.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/event"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

// Message types.
const (
	TypeClick          = "click"
	TypeStageState     = "stage_state"
	TypeStageChange    = "stage_change"
	TypeScriptComplete = "script_completed"
	TypeScriptAborted  = "script_aborted"
	TypeError          = "error"
)

// ErrHubStopped is returned by Broadcast after the hub has stopped.
var ErrHubStopped = errors.New("hub stopped")

// Message is the envelope of every outbound frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// clientMessage is an inbound frame. Clicks carry the pointer fields inline.
type clientMessage struct {
	Type string `json:"type"`
	input.PointerEvent
}

// StageState is sent to each client when it connects.
type StageState struct {
	Speakers        []stage.Speaker `json:"speakers"`
	DialogueText    string          `json:"dialogue_text"`
	DialogueVisible bool            `json:"dialogue_visible"`
}

// ScriptNotice reports a finished or aborted script.
type ScriptNotice struct {
	RunnerID string `json:"runner_id"`
	Kind     string `json:"kind"`
	Ticks    uint64 `json:"ticks"`
	Value    any    `json:"value,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Poster queues work for the tick goroutine.
type Poster interface {
	Post(fn func()) error
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type direct struct {
	client  *client
	payload []byte
}

// Hub tracks connected clients. Its state is owned by the Run goroutine.
type Hub struct {
	poster   Poster
	onClick  func(input.PointerEvent)
	logger   *zap.Logger
	upgrader websocket.Upgrader
	stage    *stage.Recorder

	clients    map[*client]bool
	broadcast  chan []byte
	reply      chan direct
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub creates a hub whose clicks are posted to poster and applied with
// onClick. An empty allowedOrigins accepts any origin.
func NewHub(poster Poster, onClick func(input.PointerEvent), allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		poster:     poster,
		onClick:    onClick,
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		reply:      make(chan direct, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// Run serves client registration and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			h.logger.Info("bridge hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("bridge client registered", zap.String("remote", c.conn.RemoteAddr().String()))
			if h.stage != nil {
				if payload, err := encode(TypeStageState, h.stageState()); err == nil {
					h.offer(c, payload)
				}
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Debug("bridge client unregistered", zap.String("remote", c.conn.RemoteAddr().String()))
			}

		case d := <-h.reply:
			if h.clients[d.client] {
				h.offer(d.client, d.payload)
			}

		case payload := <-h.broadcast:
			for c := range h.clients {
				h.offer(c, payload)
			}
		}
	}
}

// offer queues payload for c, dropping clients that cannot keep up.
func (h *Hub) offer(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("bridge client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// Broadcast sends a message to every connected client without blocking the
// caller. Messages are dropped when the outbound queue is full.
func (h *Hub) Broadcast(msgType string, data any) error {
	payload, err := encode(msgType, data)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("bridge broadcast queue full, dropping message", zap.String("type", msgType))
	}
	return nil
}

func encode(msgType string, data any) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data})
}

// AttachStage mirrors every change of rec to the clients and sends new
// clients the current stage. Call it before Run.
func (h *Hub) AttachStage(rec *stage.Recorder) (cancel func()) {
	h.stage = rec
	handle := rec.Changes.Subscribe(func(c stage.Change) {
		if err := h.Broadcast(TypeStageChange, c); err != nil && !errors.Is(err, ErrHubStopped) {
			h.logger.Warn("failed to broadcast stage change", zap.Error(err))
		}
	})
	return func() { rec.Changes.Unsubscribe(handle) }
}

func (h *Hub) stageState() StageState {
	text, visible := h.stage.Dialogue()
	return StageState{
		Speakers:        h.stage.Speakers(),
		DialogueText:    text,
		DialogueVisible: visible,
	}
}

// AttachManager forwards script completions and aborts to the clients.
func (h *Hub) AttachManager(m *event.Manager) (cancel func()) {
	cancelComplete := m.OnComplete(func(c event.Completion) {
		h.notify(TypeScriptComplete, ScriptNotice{
			RunnerID: c.RunnerID.String(),
			Kind:     string(c.Script.Kind()),
			Ticks:    c.Ticks,
			Value:    c.Value,
		})
	})
	cancelAbort := m.OnAbort(func(a event.Abortion) {
		h.notify(TypeScriptAborted, ScriptNotice{
			RunnerID: a.RunnerID.String(),
			Kind:     string(a.Script.Kind()),
			Ticks:    a.Ticks,
			Reason:   a.Reason,
		})
	})
	return func() {
		cancelComplete()
		cancelAbort()
	}
}

func (h *Hub) notify(msgType string, n ScriptNotice) {
	err := h.Broadcast(msgType, n)
	if errors.Is(err, ErrHubStopped) {
		return
	}
	if err != nil {
		// values that do not encode are sent without them
		n.Value = nil
		err = h.Broadcast(msgType, n)
	}
	if err != nil {
		h.logger.Warn("failed to broadcast script notice", zap.String("type", msgType), zap.Error(err))
	}
}

// ServeHTTP upgrades the request to a websocket and serves the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 256)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) handleMessage(c *client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.replyError(c, "malformed message")
		return
	}

	switch msg.Type {
	case TypeClick:
		ev := msg.PointerEvent
		if err := h.poster.Post(func() { h.onClick(ev) }); err != nil {
			h.logger.Warn("dropped click", zap.Error(err))
			h.replyError(c, err.Error())
		}
	default:
		h.replyError(c, "unknown message type "+msg.Type)
	}
}

func (h *Hub) replyError(c *client, text string) {
	payload, err := encode(TypeError, text)
	if err != nil {
		return
	}
	select {
	case h.reply <- direct{client: c, payload: payload}:
	case <-h.done:
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(c, raw)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
