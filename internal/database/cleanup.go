package database

import (
	"context"
	"time"

	"github.com/wfunc/lifecount/internal/logger"
	"github.com/wfunc/lifecount/internal/models"
	"go.uber.org/zap"
)

// Sweeper 过期数据清理器
// 模拟文档存储的TTL能力：对局及其动作在最后活动时间超过保留时长后自动删除，
// 属于存储层策略，不参与业务逻辑。
type Sweeper struct {
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// NewSweeper 创建清理器
func NewSweeper(retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		retention: retention,
		interval:  interval,
		logger:    logger.GetModuleLogger("database"),
	}
}

// Run 周期性执行清理，直到上下文取消
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("过期清理失败", zap.Error(err))
			}
		}
	}
}

// SweepOnce 执行一次清理
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)

	// 先删过期对局的动作记录，再删对局本身
	var expired []string
	if err := DB.WithContext(ctx).
		Model(&models.Game{}).
		Where("last_activity < ?", cutoff).
		Pluck("code", &expired).Error; err != nil {
		return err
	}

	if len(expired) > 0 {
		if err := DB.WithContext(ctx).
			Where("game_code IN ?", expired).
			Delete(&models.Action{}).Error; err != nil {
			return err
		}

		result := DB.WithContext(ctx).
			Where("last_activity < ?", cutoff).
			Delete(&models.Game{})
		if result.Error != nil {
			return result.Error
		}

		s.logger.Info("清理过期对局",
			zap.Int64("games", result.RowsAffected),
			zap.Time("cutoff", cutoff))
	}

	// 孤立动作记录按自身时间戳清理，兜住对局删除与动作写入之间的竞争
	if err := DB.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.Action{}).Error; err != nil {
		return err
	}

	return nil
}
