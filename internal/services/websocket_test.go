package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestHub() *WebSocketHub {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewWebSocketHub(logger)
}

func TestWebSocketHub_ClientManagement(t *testing.T) {
	hub := newTestHub()

	// 启动hub在后台
	go hub.Run()

	// 模拟客户端连接
	client1 := &WebSocketClient{
		ID:   "client-1",
		Send: make(chan WebSocketMessage, 16),
		Hub:  hub,
	}
	client2 := &WebSocketClient{
		ID:   "client-2",
		Send: make(chan WebSocketMessage, 16),
		Hub:  hub,
	}

	// 注册客户端
	hub.register <- client1
	hub.register <- client2
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 2, hub.GetClientCount())

	// 注销一个客户端
	hub.unregister <- client1
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	hub.unregister <- client2
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	client := &WebSocketClient{
		ID:   "client-1",
		Send: make(chan WebSocketMessage, 16),
		Hub:  hub,
	}
	hub.register <- client
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(EventScreenPop, "", map[string]interface{}{"phone": "555-0101"})

	select {
	case msg := <-client.Send:
		assert.Equal(t, EventScreenPop, msg.Type)
		assert.False(t, msg.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("broadcast was not delivered")
	}
}

func TestWebSocketHub_BroadcastWithoutClients(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	// 无客户端时广播不应阻塞调用方
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(EventCallTick, "call-1", map[string]interface{}{"seconds": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no clients connected")
	}
}

func TestWebSocketHub_HandleWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := newTestHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Broadcast(EventCallEnded, "call-1", map[string]interface{}{"id": "int-42"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WebSocketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	assert.Equal(t, EventCallEnded, msg.Type)
	assert.Equal(t, "call-1", msg.SessionID)
}
