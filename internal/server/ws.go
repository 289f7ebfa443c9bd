package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/server/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = 2 * time.Second

// Message types pushed to detection clients.
const (
	MessageAck   = "ack"
	MessageTake  = "take"
	MessageError = "error"
)

// DetectionMessage is the envelope written to every detection client.
type DetectionMessage struct {
	Type     string        `json:"type"`
	Recorded *bool         `json:"recorded,omitempty"`
	Take     *collect.Take `json:"take,omitempty"`
	Log      string        `json:"log,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg DetectionMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// DetectionsHandler records detections streamed by browser clients and
// pushes finalized take summaries back to every connected client.
type DetectionsHandler struct {
	session *collect.Session
	clients map[*wsClient]bool
	mu      sync.RWMutex
}

// NewDetectionsHandler creates a DetectionsHandler recording into s.
func NewDetectionsHandler(s *collect.Session) *DetectionsHandler {
	return &DetectionsHandler{
		session: s,
		clients: make(map[*wsClient]bool),
	}
}

// ServeHTTP upgrades the connection and records each inbound detection.
// Every inbound message is answered with an ack or an error.
func (h *DetectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", slog.Any("error", err))
		return
	}
	defer conn.Close()

	c := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req api.FrameRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := c.send(DetectionMessage{Type: MessageError, Error: "invalid detection"}); err != nil {
				break
			}
			continue
		}

		recorded := h.session.AddResult(req.Result, req.Meta)
		if err := c.send(DetectionMessage{Type: MessageAck, Recorded: &recorded}); err != nil {
			break
		}
	}
}

// BroadcastTake pushes a finalized take to every connected client. Clients
// that cannot be written to are dropped.
func (h *DetectionsHandler) BroadcastTake(take collect.Take) {
	msg := DetectionMessage{Type: MessageTake, Take: &take, Log: take.LogLine()}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			slog.Debug("dropping detection client", slog.Any("error", err))
			c.conn.Close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *DetectionsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
