package websocket

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/game"
	"github.com/wfunc/lifecount/internal/logger"
	"go.uber.org/zap"
)

// GameHandler 对局WebSocket消息处理器：把协议消息翻译为对局服务调用
type GameHandler struct {
	service *game.Service
	hub     *Hub
	logger  *zap.Logger
}

// NewGameHandler 创建对局消息处理器
func NewGameHandler(service *game.Service, hub *Hub, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// HandleClientMessage 实现MessageHandler接口
func (h *GameHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error("解析WebSocket消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		h.sendError(client, apperrors.ErrMessageFormat, "消息格式错误")
		return
	}

	if msg.Type == "" {
		h.sendError(client, apperrors.ErrMessageFormat, "消息类型不能为空")
		return
	}

	logger.LogWebSocketMessage("receive", msg.Type, msg.GameCode)

	ctx := context.Background()

	switch msg.Type {
	case MessageTypePong:
		// 客户端响应ping

	case MessageTypeJoinGame:
		h.handleJoin(ctx, client, msg)

	case MessageTypeLeaveGame:
		if msg.GameCode != "" {
			h.hub.LeaveGame(client, msg.GameCode)
		} else if client.GameCode != "" {
			h.hub.LeaveGame(client, client.GameCode)
		}

	case MessageTypeSubmitAction:
		h.handleSubmit(ctx, client, msg)

	case MessageTypeSync:
		h.handleSync(ctx, client, msg)

	default:
		h.logger.Warn("收到不支持的消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		h.sendError(client, apperrors.ErrMessageFormat, "不支持的消息类型: "+msg.Type)
	}
}

// handleJoin 加入对局：订阅广播并立即下发当前快照
func (h *GameHandler) handleJoin(ctx context.Context, client *Client, msg Message) {
	code := msg.GameCode
	if code == "" {
		var req JoinGameData
		if msg.Data != nil {
			json.Unmarshal(msg.Data, &req)
		}
		code = req.GameCode
	}
	if code == "" {
		h.sendError(client, apperrors.ErrInvalidParam, "缺少对局码")
		return
	}

	snapshot, err := h.service.FetchGame(ctx, code)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	h.hub.JoinGame(client, snapshot.Code)
	h.send(client, MessageTypeGameState, snapshot.Code, snapshot)
}

// handleSubmit 提交动作
func (h *GameHandler) handleSubmit(ctx context.Context, client *Client, msg Message) {
	var req SubmitActionData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.ErrMessageFormat, "动作数据格式错误")
		return
	}

	code := msg.GameCode
	if code == "" {
		code = client.GameCode
	}
	if code == "" {
		h.sendError(client, apperrors.ErrInvalidParam, "缺少对局码")
		return
	}
	if req.ClientID == "" {
		req.ClientID = client.ID
	}

	snapshot, action, err := h.service.SubmitAction(ctx, code, req.Type, req.PlayerIndex, req.Payload, req.ClientID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	// 房间广播由提交引擎触发，这里只回执提交方
	h.send(client, MessageTypeActionAck, snapshot.Code, GameUpdateData{
		Game:   snapshot,
		Action: action,
	})
}

// handleSync 同步落后的客户端
func (h *GameHandler) handleSync(ctx context.Context, client *Client, msg Message) {
	var req SyncData
	if msg.Data != nil {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(client, apperrors.ErrMessageFormat, "同步请求格式错误")
			return
		}
	}

	code := msg.GameCode
	if code == "" {
		code = client.GameCode
	}
	if code == "" {
		h.sendError(client, apperrors.ErrInvalidParam, "缺少对局码")
		return
	}

	result, err := h.service.Sync(ctx, code, req.ClientSequence)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	h.send(client, MessageTypeSyncResult, code, result)
}

// send 发送带数据的消息
func (h *GameHandler) send(client *Client, msgType, gameCode string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("序列化响应失败", zap.Error(err))
		return
	}

	logger.LogWebSocketMessage("send", msgType, gameCode)
	h.hub.SendToClient(client.ID, &Message{
		Type:      msgType,
		GameCode:  gameCode,
		Data:      jsonData,
		Timestamp: time.Now().Unix(),
	})
}

// sendAppError 按应用错误回发错误消息
func (h *GameHandler) sendAppError(client *Client, err error) {
	code := apperrors.GetCode(err)
	h.sendError(client, code, err.Error())
}

// sendError 回发错误消息
func (h *GameHandler) sendError(client *Client, code apperrors.ErrorCode, message string) {
	data, _ := json.Marshal(ErrorData{
		Code:    int(code),
		Message: message,
	})
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeError,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}
