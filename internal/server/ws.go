package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"oss-impact-radar/internal/service"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxRequestSize 单条排名请求的大小上限
	maxRequestSize = 4096
)

// 事件类型
const (
	EventRank   = "rank"
	EventError  = "error"
	EventReload = "reload"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message 发给客户端的消息
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// ReloadData 数据集重新加载后推送的内容
type ReloadData struct {
	Records int `json:"records"`
}

// Hub 管理 WebSocket 连接。客户端每发来一个 RankRequest，就回一条 rank 消息。
type Hub struct {
	svc  *service.DashboardService
	topN int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub 创建连接管理器
func NewHub(svc *service.DashboardService, topN int) *Hub {
	return &Hub{
		svc:     svc,
		topN:    topN,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP 升级连接，连上后立即推送一次默认排名
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	c.enqueue(h.handleRequest(service.RankRequest{}))

	go c.writePump()
	h.readPump(c)
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastReload 通知所有客户端数据集已更新，客户端收到后重新请求
func (h *Hub) BroadcastReload(records int) {
	data, err := json.Marshal(Message{Event: EventReload, Data: ReloadData{Records: records}})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			// 发送缓冲区满了，断开这个客户端
			h.unregister(c)
		}
	}
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// handleRequest 计算排名并编码为消息
func (h *Hub) handleRequest(req service.RankRequest) []byte {
	if req.Top == 0 {
		req.Top = h.topN
	}

	msg := Message{Event: EventRank}
	resp, err := h.svc.Rank(req)
	if err != nil {
		msg = Message{Event: EventError, Error: err.Error()}
	} else {
		msg.Data = resp
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Server] ❌ 编码 WebSocket 消息失败: %v", err)
		data, _ = json.Marshal(Message{Event: EventError, Error: "internal error"})
	}
	return data
}

// readPump 读取客户端的排名请求，直到连接断开
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxRequestSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req service.RankRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			data, _ := json.Marshal(Message{Event: EventError, Error: "invalid request: " + err.Error()})
			c.enqueue(data)
			continue
		}
		if !c.enqueue(h.handleRequest(req)) {
			return
		}
	}
}

// enqueue 非阻塞地放入发送队列；队列满或已关闭时返回 false
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump 把发送队列里的消息写到连接上，并定期发送 ping
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
