package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）。
// 慢消费者只会丢自己的帧，不会拖住协调者
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃发不出去的消息
	}
}

// Close 关闭底层连接与发送队列。只在协调者线程里调用
func (c *ClientConn) Close() {
	if c.send != nil {
		// 关闭发送通道以结束写协程
		close(c.send)
		c.send = nil
	}
	_ = c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 读取客户端消息，原样投进协调者收件箱，解码在那边统一做。
// 投递是阻塞的：协调者忙时读端等待，消息不丢、顺序不乱
func (c *ClientConn) readPump(h *Hub, sid SessionID) {
	defer c.ws.Close()
	// 读泵退出时，通知协调者摘除该会话
	defer func() { h.inbox <- disconnectCmd{sid: sid} }()
	c.ws.SetReadLimit(1 << 20) // 1MB
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.inbox <- inboundCmd{sid: sid, data: payload}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 客户端直连，允许所有来源
		return true
	},
}

// HandleWS WebSocket 接入。任意路径的升级请求都接，不做鉴权；
// 先向协调者登记会话，再起读写泵，保证后续消息都能找到会话
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws)
	sess := &Session{ID: NewSessionID(), Channel: client}
	h.inbox <- connectCmd{sess: sess}

	go client.writePump()
	go client.readPump(h, sess.ID)
}
