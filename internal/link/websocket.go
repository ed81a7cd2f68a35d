// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local debugging tool
	},
}

// wsRequest is a message from a websocket client.
//
//	{"action":"subscribe","channel":"label"}
//	{"action":"write","channel":"control","text":"rate:50"}
//	{"action":"write","channel":"control","data":"AWQA"}   (base64)
//	{"action":"read","channel":"info"}
type wsRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Text    string `json:"text,omitempty"`
	Data    []byte `json:"data,omitempty"`
}

// wsMessage is sent to websocket clients.
type wsMessage struct {
	Type    string `json:"type"` // "notify", "value", "ack", "error"
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`
	Data    []byte `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
	subs map[Channel]bool // guarded by WebSocket.mu
}

// WebSocket serves the node surface to browser and script clients.
type WebSocket struct {
	logger *zap.Logger
	subs   *subscriptions
	values *values
	in     *inbox

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	dropped atomic.Uint64
}

// NewWebSocket returns a transport with no clients.
func NewWebSocket(logger *zap.Logger) *WebSocket {
	w := &WebSocket{
		logger:  logger.Named("ws"),
		subs:    newSubscriptions(),
		values:  newValues(),
		clients: make(map[*wsClient]struct{}),
	}
	w.in = newInbox(func(ev Event) {
		w.logger.Warn("event queue full, dropping event", zap.Stringer("channel", ev.Channel))
	})
	return w
}

// Handler routes /ws and /api/info.
func (w *WebSocket) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.serveWS)
	mux.HandleFunc("/api/info", func(rw http.ResponseWriter, r *http.Request) {
		info := w.values.get(Info)
		if len(info) == 0 {
			http.Error(rw, "no data yet", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.Write(info)
	})
	return mux
}

func (w *WebSocket) serveWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan wsMessage, 64), subs: make(map[Channel]bool)}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return
	}
	w.clients[c] = struct{}{}
	w.mu.Unlock()

	go w.writePump(c)
	defer w.drop(c)

	w.logger.Info("client connected", zap.String("remote", r.RemoteAddr))
	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				w.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		w.handle(c, req)
	}
}

func (w *WebSocket) handle(c *wsClient, req wsRequest) {
	ch, err := ParseChannel(req.Channel)
	if err != nil {
		w.reply(c, wsMessage{Type: "error", Message: err.Error()})
		return
	}

	switch req.Action {
	case "subscribe", "unsubscribe":
		if !ch.Notifiable() {
			w.reply(c, wsMessage{Type: "error", Channel: ch.String(), Message: "channel does not notify"})
			return
		}
		w.setSubscribed(c, ch, req.Action == "subscribe")
		w.reply(c, wsMessage{Type: "ack", Channel: ch.String()})
	case "write":
		if ch != Control {
			w.reply(c, wsMessage{Type: "error", Channel: ch.String(), Message: "channel is not writable"})
			return
		}
		payload := req.Data
		if len(payload) == 0 {
			payload = []byte(req.Text)
		}
		w.in.push(Event{Kind: EventWrite, Channel: Control, Payload: payload, Origin: "ws"})
		w.reply(c, wsMessage{Type: "ack", Channel: ch.String()})
	case "read":
		w.reply(c, wsMessage{Type: "value", Channel: ch.String(), Text: string(w.values.get(ch))})
	default:
		w.reply(c, wsMessage{Type: "error", Message: "unknown action: " + req.Action})
	}
}

func (w *WebSocket) setSubscribed(c *wsClient, ch Channel, on bool) {
	w.mu.Lock()
	was := c.subs[ch]
	c.subs[ch] = on
	w.mu.Unlock()
	if was == on {
		return
	}
	if on && w.subs.add(ch) {
		w.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: true, Origin: "ws"})
	}
	if !on && w.subs.remove(ch) {
		w.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: false, Origin: "ws"})
	}
}

func (w *WebSocket) reply(c *wsClient, msg wsMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

// drop unregisters a client and releases its subscriptions.
func (w *WebSocket) drop(c *wsClient) {
	w.mu.Lock()
	if _, ok := w.clients[c]; !ok {
		w.mu.Unlock()
		return
	}
	delete(w.clients, c)
	var held []Channel
	for ch, on := range c.subs {
		if on {
			held = append(held, ch)
		}
	}
	c.subs = nil
	close(c.send)
	w.mu.Unlock()

	for _, ch := range held {
		if w.subs.remove(ch) {
			w.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: false, Origin: "ws"})
		}
	}
	w.logger.Info("client disconnected", zap.Int("released", len(held)))
}

// writePump is the only writer on c.conn.
func (w *WebSocket) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			w.logger.Debug("websocket write error", zap.Error(err))
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (w *WebSocket) IsSubscribed(ch Channel) bool { return w.subs.active(ch) }

// Notify queues payload for every subscribed client. A client whose send
// buffer is full misses the notification.
func (w *WebSocket) Notify(ch Channel, payload []byte) error {
	if err := checkNotify(ch, payload); err != nil {
		return err
	}
	msg := wsMessage{Type: "notify", Channel: ch.String()}
	if ch == Label {
		msg.Text = string(payload)
	} else {
		msg.Data = append([]byte(nil), payload...)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for c := range w.clients {
		if c.subs[ch] {
			select {
			case c.send <- msg:
			default:
				w.dropped.Add(1)
			}
		}
	}
	return nil
}

func (w *WebSocket) SetValue(ch Channel, payload []byte) error {
	if len(payload) > ch.MaxLen() {
		return ErrPayloadTooLarge
	}
	w.values.set(ch, payload)
	return nil
}

func (w *WebSocket) Events() <-chan Event { return w.in.ch }

// Dropped counts notifications discarded for slow clients.
func (w *WebSocket) Dropped() uint64 { return w.dropped.Load() }

// Close disconnects every client.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	w.closed = true
	conns := make([]*websocket.Conn, 0, len(w.clients))
	for c := range w.clients {
		conns = append(conns, c.conn)
	}
	w.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
	return nil
}
