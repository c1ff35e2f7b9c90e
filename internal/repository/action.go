package repository

import (
	"context"
	"time"

	"github.com/wfunc/lifecount/internal/models"
	"gorm.io/gorm"
)

// ActionRepository 动作仓储接口（追加写入，提交后不可变）
type ActionRepository interface {
	BaseRepository
	Append(ctx context.Context, action *models.Action) error
	// ListByGame 返回序号严格大于fromSequence的动作，升序，数量不超过limit
	ListByGame(ctx context.Context, gameCode string, fromSequence int64, limit int) ([]*models.Action, error)
	CountByGame(ctx context.Context, gameCode string) (int64, error)
}

// actionRepo 动作仓储实现
type actionRepo struct {
	*BaseRepo
}

// NewActionRepository 创建动作仓储
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Append 追加动作记录
func (r *actionRepo) Append(ctx context.Context, action *models.Action) error {
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(action).Error
}

// ListByGame 按序号范围查询动作
func (r *actionRepo) ListByGame(ctx context.Context, gameCode string, fromSequence int64, limit int) ([]*models.Action, error) {
	var actions []*models.Action
	query := r.db.WithContext(ctx).
		Where("game_code = ? AND sequence > ?", gameCode, fromSequence).
		Order("sequence ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&actions).Error
	return actions, err
}

// CountByGame 统计对局的动作数量
func (r *actionRepo) CountByGame(ctx context.Context, gameCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Action{}).
		Where("game_code = ?", gameCode).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *actionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &actionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
