package services

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 事件类型
const (
	EventScreenPop = "screen_pop"
	EventCallEvent = "call_event"
	EventCallTick  = "call_tick"
	EventCallEnded = "call_ended"
)

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	SessionID string      `json:"sessionId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Send chan WebSocketMessage
	Hub  *WebSocketHub
}

// WebSocketHub 向坐席工作台推送来电弹屏和通话事件
type WebSocketHub struct {
	clients    map[string]*WebSocketClient
	broadcast  chan WebSocketMessage
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 生产环境需要验证源
	},
}

func NewWebSocketHub(logger *logrus.Logger) *WebSocketHub {
	if logger == nil {
		logger = logrus.New()
	}
	return &WebSocketHub{
		clients:    make(map[string]*WebSocketClient),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		logger:     logger,
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			h.logger.Infof("Client %s connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Infof("Client %s disconnected", client.ID)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// 发送缓冲满的客户端直接丢弃该条消息
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Broadcast 向所有已连接客户端广播事件
func (h *WebSocketHub) Broadcast(eventType string, sessionID string, data interface{}) {
	msg := WebSocketMessage{
		Type:      eventType,
		Data:      data,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("WebSocket broadcast buffer full, dropping message")
	}
}

// GetClientCount 返回当前连接数
func (h *WebSocketHub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket 升级连接并托管读写
func (h *WebSocketHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade websocket: %v", err)
		return
	}

	client := &WebSocketClient{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan WebSocketMessage, 16),
		Hub:  h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *WebSocketClient) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			c.Hub.logger.Errorf("Failed to write to client %s: %v", c.ID, err)
			return
		}
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		// 工作台是单向订阅方，入站消息只用于探测断连
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
