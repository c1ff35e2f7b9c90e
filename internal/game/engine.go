package game

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/logger"
	"github.com/wfunc/lifecount/internal/models"
	"github.com/wfunc/lifecount/internal/repository"
	"go.uber.org/zap"
)

// Broadcaster 提交成功后的广播回调（由传输层实现）。
// 广播相对提交是fire-and-forget：订阅者的快慢不影响提交结果。
type Broadcaster interface {
	BroadcastUpdate(gameCode string, game *models.Game, action *models.Action)
}

// Engine 提交引擎：为动作分配序号、应用状态转移并以乐观并发方式持久化
type Engine struct {
	games       repository.GameRepository
	actions     repository.ActionRepository
	retries     int
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewEngine 创建提交引擎
func NewEngine(games repository.GameRepository, actions repository.ActionRepository, retries int, logger *zap.Logger) *Engine {
	if retries <= 0 {
		retries = 3
	}
	return &Engine{
		games:   games,
		actions: actions,
		retries: retries,
		logger:  logger,
	}
}

// SetBroadcaster 设置广播器
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// Submit 提交一个动作：读取快照、计算新状态、版本守卫下条件更新，
// 冲突时重新读取并重试（有限次）。成功后追加历史记录并广播。
func (e *Engine) Submit(ctx context.Context, gameCode string, actionType models.ActionType, playerIndex *int, payload models.Payload, clientID string) (*models.Game, *models.Action, error) {
	code := strings.ToUpper(gameCode)

	for attempt := 1; attempt <= e.retries; attempt++ {
		// 读取当前快照
		game, err := e.games.FindByCode(ctx, code)
		if err != nil {
			return nil, nil, err
		}

		// 变更前校验，越界或畸形负载直接拒绝
		if err := Validate(game, actionType, playerIndex, payload); err != nil {
			return nil, nil, err
		}

		// 构建待提交动作，序号为应用后的快照序号
		action := &models.Action{
			GameCode:    code,
			Type:        actionType,
			PlayerIndex: playerIndex,
			Payload:     payload,
			Sequence:    game.Sequence + 1,
			ClientID:    clientID,
			Timestamp:   time.Now(),
		}

		// 计算新状态
		players := Apply(game, action)

		// 版本守卫下的条件更新：并发提交者中恰有一个胜出
		updated, err := e.games.UpdateWithVersion(ctx, code, game.Version, players)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrVersionConflict) {
				e.logger.Warn("版本冲突，重试提交",
					zap.String("game_code", code),
					zap.Int("attempt", attempt))
				continue
			}
			return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}

		// 快照更新成功后才追加历史。两步之间崩溃会留下缺失的历史记录，
		// 这是已接受的弱点：rebuild在该窗口内可能与快照分歧，不做自动修复。
		if err := e.actions.Append(ctx, action); err != nil {
			e.logger.Error("历史记录追加失败，快照已提交",
				zap.String("game_code", code),
				zap.Int64("sequence", action.Sequence),
				zap.Error(err))
		}

		// 广播给所有订阅者，同时携带动作与完整快照
		if e.broadcaster != nil {
			e.broadcaster.BroadcastUpdate(code, updated, action)
		}

		logger.LogGameAction(code, string(actionType), action.Sequence, clientID)

		return updated, action, nil
	}

	return nil, nil, apperrors.Newf(apperrors.ErrConcurrencyExhausted, "对局 %s 连续 %d 次提交冲突", code, e.retries)
}
