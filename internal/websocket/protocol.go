package websocket

import (
	"encoding/json"

	"github.com/wfunc/lifecount/internal/models"
)

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`                // 消息类型
	GameCode  string          `json:"game_code,omitempty"` // 对局码
	Data      json.RawMessage `json:"data,omitempty"`      // 消息数据
	Timestamp int64           `json:"timestamp"`           // 时间戳
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 客户端请求
	MessageTypeJoinGame     = "join_game"
	MessageTypeLeaveGame    = "leave_game"
	MessageTypeSubmitAction = "submit_action"
	MessageTypeSync         = "sync"

	// 服务端推送
	MessageTypeGameState  = "game_state"  // 加入时的当前快照
	MessageTypeGameUpdate = "game_update" // 提交成功后的动作+快照
	MessageTypeSyncResult = "sync_result"
	MessageTypeActionAck  = "action_ack"
)

// JoinGameData join_game请求数据
type JoinGameData struct {
	GameCode string `json:"game_code"`
}

// SubmitActionData submit_action请求数据
type SubmitActionData struct {
	Type        models.ActionType `json:"type"`
	PlayerIndex *int              `json:"player_index,omitempty"`
	Payload     models.Payload    `json:"payload"`
	ClientID    string            `json:"client_id"`
}

// SyncData sync请求数据
type SyncData struct {
	ClientSequence int64 `json:"client_sequence"`
}

// GameUpdateData game_update推送数据，动作给增量消费者，快照给全量消费者
type GameUpdateData struct {
	Game   *models.Game   `json:"game"`
	Action *models.Action `json:"action"`
}

// ErrorData error推送数据
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
