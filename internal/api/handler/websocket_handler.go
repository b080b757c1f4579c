package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsMessage is the envelope every WebSocket frame uses.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WebSocketManager fans plate check notifications out to dashboard clients.
type WebSocketManager struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *zap.Logger
}

func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger.Named("websocket"),
	}
}

// Start runs the hub until ctx is cancelled, then closes every client.
// It must be called at most once.
func (wsm *WebSocketManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(wsm.done)
			wsm.mutex.Lock()
			for client := range wsm.clients {
				client.Close()
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = struct{}{}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Debug("client connected", zap.Int("total", total))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Debug("client disconnected", zap.Int("total", total))

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				_ = client.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					wsm.logger.Debug("write failed, dropping client", zap.Error(err))
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// ClientCount reports the number of connected clients.
func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

func (wsm *WebSocketManager) BroadcastPlateCheck(notification domain.PlateCheckNotification) {
	message, err := json.Marshal(wsMessage{Type: "plate_check", Data: notification})
	if err != nil {
		wsm.logger.Error("marshal plate check notification", zap.Error(err))
		return
	}

	select {
	case wsm.broadcast <- message:
	default:
		wsm.logger.Warn("broadcast channel is full, dropping message")
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.wsManager.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.wsManager.register <- conn:
	case <-h.wsManager.done:
		conn.Close()
		return
	}

	// Clients only listen; reading detects the disconnect.
	go func() {
		defer func() {
			select {
			case h.wsManager.unregister <- conn:
			case <-h.wsManager.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.wsManager.logger.Debug("websocket closed unexpectedly", zap.Error(err))
				}
				return
			}
		}
	}()
}
