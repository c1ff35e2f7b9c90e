package client

import (
	"context"
	"sync"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/game"
	"go.uber.org/zap"
)

// Session 单个对局的客户端会话。
// 持有本地快照，便利方法把目标值换算成增量动作提交，
// 远端推送经由调解器处理，编辑期间本地状态优先。
type Session struct {
	client *Client
	code   string

	mu   sync.RWMutex
	game *Game

	reconciler *Reconciler
	logger     *zap.Logger
}

// Join 加入对局并拉取当前快照
func (c *Client) Join(ctx context.Context, code string) (*Session, error) {
	snapshot, err := c.FetchGame(ctx, code)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client: c,
		code:   snapshot.Code,
		game:   snapshot,
		logger: c.logger,
	}

	s.reconciler = NewReconciler(ReconcilerConfig{
		Local:   s.localPlayers,
		Adopt:   s.adopt,
		Push:    s.pushPlayer,
		Refetch: s.refetch,
		Logger:  c.logger,
	})

	return s, nil
}

// Code 返回对局码
func (s *Session) Code() string {
	return s.code
}

// Game 返回本地快照副本
func (s *Session) Game() *Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := *s.game
	snapshot.Players = s.game.Players.Clone()
	return &snapshot
}

// Reconciler 返回会话的调解器
func (s *Session) Reconciler() *Reconciler {
	return s.reconciler
}

// Close 停止会话的后台调解
func (s *Session) Close() {
	s.reconciler.Stop()
}

// AdjustLife 按增量调整生命值
func (s *Session) AdjustLife(ctx context.Context, playerIndex, delta int) error {
	return s.submit(ctx, ActionChangeLife, &playerIndex, Payload{Delta: &delta})
}

// SetLife 把生命值设为目标值，换算成增量提交
func (s *Session) SetLife(ctx context.Context, playerIndex, life int) error {
	s.mu.RLock()
	if playerIndex < 0 || playerIndex >= len(s.game.Players) {
		s.mu.RUnlock()
		return errPlayerIndex(playerIndex)
	}
	delta := life - s.game.Players[playerIndex].Life
	s.mu.RUnlock()

	if delta == 0 {
		return nil
	}
	return s.AdjustLife(ctx, playerIndex, delta)
}

// AdjustCommanderDamage 按增量调整指挥官伤害
func (s *Session) AdjustCommanderDamage(ctx context.Context, playerIndex, fromIndex, delta int) error {
	return s.submit(ctx, ActionChangeCommanderDamage, &playerIndex, Payload{
		Delta:           &delta,
		FromPlayerIndex: &fromIndex,
	})
}

// SetCommanderDamage 把指挥官伤害设为目标值，换算成增量提交
func (s *Session) SetCommanderDamage(ctx context.Context, playerIndex, fromIndex, total int) error {
	s.mu.RLock()
	if playerIndex < 0 || playerIndex >= len(s.game.Players) {
		s.mu.RUnlock()
		return errPlayerIndex(playerIndex)
	}
	if fromIndex < 0 || fromIndex >= len(s.game.Players[playerIndex].CommanderDamage) {
		s.mu.RUnlock()
		return errPlayerIndex(fromIndex)
	}
	delta := total - s.game.Players[playerIndex].CommanderDamage[fromIndex]
	s.mu.RUnlock()

	if delta == 0 {
		return nil
	}
	return s.AdjustCommanderDamage(ctx, playerIndex, fromIndex, delta)
}

// SetName 设置玩家名称
func (s *Session) SetName(ctx context.Context, playerIndex int, name string) error {
	return s.submit(ctx, ActionSetPlayerName, &playerIndex, Payload{Name: &name})
}

// Reset 重置对局
func (s *Session) Reset(ctx context.Context) error {
	return s.submit(ctx, ActionResetGame, nil, Payload{})
}

// HandleRemoteSnapshot 处理服务端推送的快照。
// WebSocket消费方收到game_update/game_state时调用。
func (s *Session) HandleRemoteSnapshot(snapshot *Game) {
	s.reconciler.RemoteSnapshot(snapshot)
}

// SyncNow 按本地序列号主动向服务端同步
func (s *Session) SyncNow(ctx context.Context) error {
	s.mu.RLock()
	clientSequence := s.game.Sequence
	s.mu.RUnlock()

	result, err := s.client.Sync(ctx, s.code, clientSequence)
	if err != nil {
		return err
	}

	switch result.Type {
	case SyncFull:
		s.adopt(result.Game)

	case SyncIncremental:
		s.mu.Lock()
		for _, action := range result.Actions {
			s.game.Players = game.Apply(s.game, action)
			s.game.Sequence = action.Sequence
		}
		if result.CurrentSequence > s.game.Sequence {
			s.game.Sequence = result.CurrentSequence
		}
		s.mu.Unlock()
	}

	return nil
}

// submit 提交动作并采纳服务端返回的快照
func (s *Session) submit(ctx context.Context, actionType ActionType, playerIndex *int, payload Payload) error {
	// 先标记本地活跃，编辑窗口内的远端推送进入缓冲
	s.reconciler.LocalMutation()

	result, err := s.client.SubmitAction(ctx, s.code, actionType, playerIndex, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.game = result.Game
	s.mu.Unlock()

	return nil
}

// localPlayers 返回本地玩家状态副本
func (s *Session) localPlayers() PlayerList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Players.Clone()
}

// adopt 采纳远端快照为本地状态
func (s *Session) adopt(snapshot *Game) {
	if snapshot == nil {
		return
	}
	s.mu.Lock()
	s.game = snapshot
	s.mu.Unlock()
}

// pushPlayer 把单个玩家的本地状态重推到服务端。
// 以远端快照为基准换算增量，重放后远端即等于本地。
// 直接走客户端提交，不触发本地活跃标记，避免调解自我循环。
func (s *Session) pushPlayer(ctx context.Context, index int, local, remote Player) error {
	if local.Name != remote.Name {
		name := local.Name
		if _, err := s.client.SubmitAction(ctx, s.code, ActionSetPlayerName, &index, Payload{Name: &name}); err != nil {
			return err
		}
	}

	if delta := local.Life - remote.Life; delta != 0 {
		d := delta
		if _, err := s.client.SubmitAction(ctx, s.code, ActionChangeLife, &index, Payload{Delta: &d}); err != nil {
			return err
		}
	}

	for from := 0; from < len(local.CommanderDamage) && from < len(remote.CommanderDamage); from++ {
		if delta := local.CommanderDamage[from] - remote.CommanderDamage[from]; delta != 0 {
			d := delta
			f := from
			if _, err := s.client.SubmitAction(ctx, s.code, ActionChangeCommanderDamage, &index, Payload{Delta: &d, FromPlayerIndex: &f}); err != nil {
				return err
			}
		}
	}

	return nil
}

// refetch 重新拉取权威快照
func (s *Session) refetch(ctx context.Context) (*Game, error) {
	return s.client.FetchGame(ctx, s.code)
}

// errPlayerIndex 座位号越界错误
func errPlayerIndex(index int) error {
	return apperrors.Newf(apperrors.ErrPlayerIndexRange, "玩家座位号 %d 越界", index)
}
