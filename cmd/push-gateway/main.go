package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"flashmall/internal/pkg/bootstrap"
	"flashmall/internal/pkg/config"
	"flashmall/internal/pkg/constants"
	"flashmall/internal/pkg/logger"
	"flashmall/internal/pkg/mq"
	"flashmall/internal/service/promotion/domain"
)

var (
	nodeID   = constants.PushGateway + "-" + uuid.NewString()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub 维护所有活跃连接并按成员 ID 投递拼团进度。
type Hub struct {
	clients    map[int64]*Client // memberID -> 连接
	register   chan *Client
	unregister chan *Client
	deliver    chan *domain.Event
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *domain.Event, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			if old, ok := h.clients[client.memberID]; ok {
				close(old.send)
			}
			h.clients[client.memberID] = client
			zlog.Info().Int64("member_id", client.memberID).Str("node", nodeID).Msg("client registered")
		case client := <-h.unregister:
			if cur, ok := h.clients[client.memberID]; ok && cur == client {
				delete(h.clients, client.memberID)
				close(client.send)
			}
		case event := <-h.deliver:
			h.push(event)
		}
	}
}

// push 把事件投给当前节点上在线的目标成员。
// 成团/取消/过期是整团广播，只有进度事件才定向到单个成员。
func (h *Hub) push(event *domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	switch event.Type {
	case domain.EventGroupSucceeded, domain.EventGroupCancelled, domain.EventGroupExpired,
		domain.EventGroupMemberJoined, domain.EventGroupStarted:
		for _, client := range h.clients {
			if client.watching(event.LeaderOrderID) || client.memberID == event.MemberID {
				client.trySend(payload)
			}
		}
	default:
		if client, ok := h.clients[event.MemberID]; ok {
			client.trySend(payload)
		}
	}
}

// Client 代表一个 WebSocket 连接。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	memberID int64

	mu     sync.Mutex
	groups map[int64]struct{} // 订阅中的团长单 ID
}

func (c *Client) watching(leaderOrderID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.groups[leaderOrderID]
	return ok
}

func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// 慢消费者直接丢，推送只是加速感知，落库状态才是事实
	}
}

type subscribeMessage struct {
	Action        string `json:"action"` // subscribe / unsubscribe
	LeaderOrderID int64  `json:"leaderOrderId"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.mu.Lock()
		switch msg.Action {
		case "subscribe":
			c.groups[msg.LeaderOrderID] = struct{}{}
		case "unsubscribe":
			delete(c.groups, msg.LeaderOrderID)
		}
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(r.URL.Query().Get("memberId"), 10, 64)
	if err != nil || memberID <= 0 {
		http.Error(w, "memberId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Error().Err(err).Msg("upgrade websocket")
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		memberID: memberID,
		groups:   make(map[int64]struct{}),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeEvents 订阅促销事件流并交给 Hub 分发。
func consumeEvents(ctx context.Context, cfg *config.Config, hub *Hub) {
	reader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, nodeID)
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zlog.Error().Err(err).Msg("read promotion event")
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, &msg)
		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Ctx(msgCtx).Warn().Err(err).Msg("malformed promotion event")
			continue
		}
		hub.deliver <- &event
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	cfg.Service.Port = 8088

	hub := newHub()
	go hub.run()

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	go consumeEvents(consumeCtx, cfg, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PushGateway,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		},
		OnShutdown: func(_ context.Context) {
			cancelConsume()
		},
	})
}
