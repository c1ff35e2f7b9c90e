package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/lifecount/internal/models"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，按对局码分房间广播
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 对局码到客户端的映射（订阅关系）
	gameClients map[string][]*Client
	gameMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *gameMessage

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 消息处理器
	messageHandler MessageHandler

	// 日志
	logger *zap.Logger
}

// MessageHandler 客户端消息处理接口
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
}

// gameMessage 房间广播载体
type gameMessage struct {
	gameCode string
	message  *Message
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		gameClients: make(map[string][]*Client),
		broadcast:   make(chan *gameMessage, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，直到上下文取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case gm := <-h.broadcast:
			h.broadcastToGame(gm.gameCode, gm.message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"client_id":"` + client.ID + `"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	// 从所有对局订阅中移除
	h.gameMu.Lock()
	for code, clients := range h.gameClients {
		for i, c := range clients {
			if c.ID == client.ID {
				h.gameClients[code] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.gameClients[code]) == 0 {
			delete(h.gameClients, code)
		}
	}
	h.gameMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID))
}

// JoinGame 订阅对局广播
func (h *Hub) JoinGame(client *Client, gameCode string) {
	h.gameMu.Lock()
	defer h.gameMu.Unlock()

	for _, c := range h.gameClients[gameCode] {
		if c.ID == client.ID {
			return
		}
	}
	h.gameClients[gameCode] = append(h.gameClients[gameCode], client)
	client.GameCode = gameCode

	h.logger.Info("客户端加入对局",
		zap.String("client_id", client.ID),
		zap.String("game_code", gameCode))
}

// LeaveGame 取消订阅
func (h *Hub) LeaveGame(client *Client, gameCode string) {
	h.gameMu.Lock()
	defer h.gameMu.Unlock()

	clients := h.gameClients[gameCode]
	for i, c := range clients {
		if c.ID == client.ID {
			h.gameClients[gameCode] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.gameClients[gameCode]) == 0 {
		delete(h.gameClients, gameCode)
	}
	if client.GameCode == gameCode {
		client.GameCode = ""
	}

	h.logger.Info("客户端离开对局",
		zap.String("client_id", client.ID),
		zap.String("game_code", gameCode))
}

// broadcastToGame 向对局房间内所有客户端广播
func (h *Hub) broadcastToGame(gameCode string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.gameMu.RLock()
	clients := make([]*Client, len(h.gameClients[gameCode]))
	copy(clients, h.gameClients[gameCode])
	h.gameMu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区满：丢弃本条，慢订阅者不能拖住提交方
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("game_code", gameCode))
		}
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// BroadcastUpdate 实现game.Broadcaster：提交成功后向对局房间推送动作与完整快照
func (h *Hub) BroadcastUpdate(gameCode string, game *models.Game, action *models.Action) {
	data, err := json.Marshal(GameUpdateData{
		Game:   game,
		Action: action,
	})
	if err != nil {
		h.logger.Error("序列化对局更新失败", zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeGameUpdate,
		GameCode:  gameCode,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- &gameMessage{gameCode: gameCode, message: msg}:
	default:
		h.logger.Warn("广播通道已满，丢弃对局更新",
			zap.String("game_code", gameCode))
	}
}

// SubscriberCount 获取对局的订阅者数量
func (h *Hub) SubscriberCount(gameCode string) int {
	h.gameMu.RLock()
	defer h.gameMu.RUnlock()
	return len(h.gameClients[gameCode])
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
