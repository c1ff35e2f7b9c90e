package client

import (
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/game"
	"github.com/wfunc/lifecount/internal/models"
)

// 线上类型的别名。服务端的数据模型位于internal包，外部导入方无法直接
// 引用，这里以别名形式重新导出，保证双方共用同一份定义。
type (
	// Game 对局快照
	Game = models.Game
	// Player 玩家信息
	Player = models.Player
	// PlayerList 玩家列表
	PlayerList = models.PlayerList
	// Action 动作记录
	Action = models.Action
	// ActionType 动作类型
	ActionType = models.ActionType
	// Payload 动作负载
	Payload = models.Payload
	// SyncResult 同步结果
	SyncResult = game.SyncResult
)

// 动作类型常量
const (
	ActionChangeLife            = models.ActionChangeLife
	ActionChangeCommanderDamage = models.ActionChangeCommanderDamage
	ActionSetPlayerName         = models.ActionSetPlayerName
	ActionResetGame             = models.ActionResetGame
)

// 同步结果类型常量
const (
	SyncFull        = game.SyncFull
	SyncIncremental = game.SyncIncremental
)

// ErrorCode 服务端错误码
type ErrorCode = apperrors.ErrorCode

// 客户端调用方可能据以分支的错误码
const (
	ErrGameNotFound         = apperrors.ErrGameNotFound
	ErrInvalidAction        = apperrors.ErrInvalidAction
	ErrPlayerIndexRange     = apperrors.ErrPlayerIndexRange
	ErrConcurrencyExhausted = apperrors.ErrConcurrencyExhausted
	ErrRequestFailed        = apperrors.ErrRequestFailed
)

// CodeOf 提取错误中携带的错误码，非本客户端产生的错误返回ErrUnknown
func CodeOf(err error) ErrorCode {
	return apperrors.GetCode(err)
}
