package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/logger"
)

// WebSocket message types for the demo session protocol
const (
	// Client -> Server messages
	MsgTypePing       = "ping"
	MsgTypeSessionGet = "session:get"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSession   = "session"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes demo session snapshots to connected clients
type WebSocketHandler struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	maxMessageSize int64
}

// NewWebSocketHandler creates a new WebSocket handler. maxMessageSizeKB
// limits inbound client messages.
func NewWebSocketHandler(sessions SessionManager, maxMessageSizeKB int) *WebSocketHandler {
	if maxMessageSizeKB <= 0 {
		maxMessageSizeKB = 64
	}
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMessageSize: int64(maxMessageSizeKB) * 1024,
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		logger.Debug("websocket write failed", "error", err)
	}
}

func (c *wsConn) sendError(id, message, code string) {
	c.send(WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

// HandleWebSocket upgrades the connection and pushes a snapshot after every
// session transition until the client disconnects or the session is removed.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	updates, cancel, err := wsh.sessions.Subscribe(id)
	if err != nil {
		return sessionError(err, id)
	}
	defer cancel()

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.maxMessageSize)

	conn := &wsConn{ws: ws}
	logger.Debug("websocket client connected", "session", id)

	conn.send(WSMessage{
		Type:      MsgTypeConnected,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})

	done := make(chan struct{})
	go wsh.readLoop(conn, id, done)

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.sendError(id, "session closed", "SESSION_CLOSED")
				return nil
			}
			wsh.sessions.Touch(id)
			conn.send(WSMessage{
				Type:      MsgTypeSession,
				ID:        id,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(snap),
			})
		case <-done:
			logger.Debug("websocket client disconnected", "session", id)
			return nil
		}
	}
}

// readLoop answers client messages until the connection fails.
func (wsh *WebSocketHandler) readLoop(conn *wsConn, id string, done chan<- struct{}) {
	defer close(done)

	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket connection error", "session", id, "error", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			// Respond with pong to keep connection alive
			conn.send(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeSessionGet:
			snap, err := wsh.sessions.Get(id)
			if err != nil {
				conn.sendError(id, err.Error(), "SESSION_NOT_FOUND")
				continue
			}
			conn.send(WSMessage{
				Type:      MsgTypeSession,
				ID:        id,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(snap),
			})
		default:
			conn.sendError(id, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
