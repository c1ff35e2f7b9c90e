package game

import (
	"context"
	"strings"

	"github.com/wfunc/lifecount/internal/models"
	"github.com/wfunc/lifecount/internal/repository"
	"go.uber.org/zap"
)

// History 历史服务：持久化动作日志的范围读取与全量重放
type History struct {
	games   repository.GameRepository
	actions repository.ActionRepository
	limit   int // 服务端硬上限，独立于调用方传入的limit
	logger  *zap.Logger
}

// NewHistory 创建历史服务
func NewHistory(games repository.GameRepository, actions repository.ActionRepository, limit int, logger *zap.Logger) *History {
	if limit <= 0 {
		limit = 500
	}
	return &History{
		games:   games,
		actions: actions,
		limit:   limit,
		logger:  logger,
	}
}

// List 返回序号严格大于fromSequence的动作，升序，受服务端上限约束
func (h *History) List(ctx context.Context, gameCode string, fromSequence int64, limit int) ([]*models.Action, error) {
	code := strings.ToUpper(gameCode)

	if _, err := h.games.FindByCode(ctx, code); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > h.limit {
		limit = h.limit
	}

	return h.actions.ListByGame(ctx, code, fromSequence, limit)
}

// RebuildResult 重放结果
type RebuildResult struct {
	Game               *models.Game `json:"game"`
	RebuiltFromActions bool         `json:"rebuilt_from_actions"`
	ActionCount        int          `json:"action_count"`
}

// Rebuild 从完整动作历史重建快照：以对局静态参数构建初始玩家列表，
// 再按序折叠状态转移函数。用于完整性校验与灾难恢复，幂等。
func (h *History) Rebuild(ctx context.Context, gameCode string) (*RebuildResult, error) {
	code := strings.ToUpper(gameCode)

	game, err := h.games.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	actions, err := h.actions.ListByGame(ctx, code, 0, 0)
	if err != nil {
		return nil, err
	}

	// 从初始状态重放
	replayed := *game
	replayed.Players = models.NewPlayers(game.PlayerCount, game.StartingLife)
	for _, action := range actions {
		replayed.Players = Apply(&replayed, action)
	}

	return &RebuildResult{
		Game:               &replayed,
		RebuiltFromActions: true,
		ActionCount:        len(actions),
	}, nil
}

// Verify 重放并与在线快照比对。分歧说明提交引擎存在缺陷，
// 或落在快照提交与历史追加之间的崩溃窗口内；只诊断，不修复。
func (h *History) Verify(ctx context.Context, gameCode string) (bool, error) {
	code := strings.ToUpper(gameCode)

	game, err := h.games.FindByCode(ctx, code)
	if err != nil {
		return false, err
	}

	result, err := h.Rebuild(ctx, code)
	if err != nil {
		return false, err
	}

	if !playersEqual(game.Players, result.Game.Players) {
		h.logger.Warn("重放结果与在线快照不一致",
			zap.String("game_code", code),
			zap.Int64("sequence", game.Sequence),
			zap.Int("action_count", result.ActionCount))
		return false, nil
	}

	return true, nil
}

// playersEqual 逐字段比较两组玩家状态
func playersEqual(a, b models.PlayerList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Life != b[i].Life || a[i].Color != b[i].Color {
			return false
		}
		if len(a[i].CommanderDamage) != len(b[i].CommanderDamage) {
			return false
		}
		for j := range a[i].CommanderDamage {
			if a[i].CommanderDamage[j] != b[i].CommanderDamage[j] {
				return false
			}
		}
	}
	return true
}
