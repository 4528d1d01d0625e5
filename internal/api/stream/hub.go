package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message types
const (
	TypeConnected   = "connected"
	TypeOutcome     = "outcome"
	TypeRunFinished = "run_finished"
	TypeRunFailed   = "run_failed"
)

// Message is one frame sent to subscribers
type Message struct {
	Type  string      `json:"type"`
	RunID string      `json:"run_id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Time  time.Time   `json:"time"`
}

// OutcomeData is the payload of an outcome message
type OutcomeData struct {
	Index   int               `json:"index"`
	Outcome contracts.Outcome `json:"outcome"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans run progress out to websocket subscribers
// ⭐ SSOT: 실행 진행 상황 브로드캐스트는 여기서만
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[string]*client
	mu       sync.RWMutex
	logger   *logger.Logger
}

// NewHub creates a new hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		logger:  log.WithField("module", "stream"),
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection
// GET /ws/runs
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	// 등록 전에 connected 프레임을 큐에 넣어 첫 메시지 순서 보장
	if data, err := json.Marshal(Message{Type: TypeConnected, Data: map[string]string{"client_id": c.id}, Time: time.Now()}); err == nil {
		c.send <- data
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Publish broadcasts a message to every subscriber. Slow subscribers are dropped.
func (h *Hub) Publish(msg Message) {
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal message")
		return
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.WithField("client_id", c.id).Warn("Send buffer full, dropping subscriber")
		h.unregister(c)
	}
}

// Observe publishes one finished candidate. Its signature matches backtest.Observer.
func (h *Hub) Observe(runID string, index int, outcome contracts.Outcome) {
	h.Publish(Message{
		Type:  TypeOutcome,
		RunID: runID,
		Data:  OutcomeData{Index: index, Outcome: outcome},
	})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"client_id": c.id,
		"clients":   n,
	}).Debug("Subscriber connected")
}

// unregister is safe to call more than once
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()
}

// writePump pumps messages from the send channel to the websocket connection
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains control frames and unregisters on disconnect
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Debug("Subscriber read error")
			}
			return
		}
	}
}
