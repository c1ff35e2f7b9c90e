package game

import (
	"context"
	"strings"

	"github.com/wfunc/lifecount/internal/models"
)

// 同步结果类型
const (
	SyncFull        = "FULL_SYNC"        // 客户端落后太多，下发完整快照
	SyncIncremental = "INCREMENTAL_SYNC" // 下发错过的动作，客户端本地折叠
)

// SyncResult 同步结果（带标签的两种形态）
type SyncResult struct {
	Type            string           `json:"type"`
	Game            *models.Game     `json:"game,omitempty"`             // FULL_SYNC
	Actions         []*models.Action `json:"actions,omitempty"`          // INCREMENTAL_SYNC
	CurrentSequence int64            `json:"current_sequence,omitempty"` // INCREMENTAL_SYNC
}

// Sync 根据客户端最近已知序号决定全量或增量同步。
// 长期对局的完整动作日志无上界，而短暂掉线的客户端只差几条，
// 阈值用来界定追赶成本。
func (s *Service) Sync(ctx context.Context, gameCode string, clientSequence int64) (*SyncResult, error) {
	code := strings.ToUpper(gameCode)

	game, err := s.games.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// 落后超过阈值：丢弃本地历史，整体采用快照
	if game.Sequence-clientSequence > s.cfg.SyncThreshold {
		return &SyncResult{
			Type: SyncFull,
			Game: game,
		}, nil
	}

	actions, err := s.history.List(ctx, code, clientSequence, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	return &SyncResult{
		Type:            SyncIncremental,
		Actions:         actions,
		CurrentSequence: game.Sequence,
	}, nil
}
