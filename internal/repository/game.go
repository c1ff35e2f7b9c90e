package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/models"
	"gorm.io/gorm"
)

// GameRepository 对局仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	FindByCode(ctx context.Context, code string) (*models.Game, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// UpdateWithVersion 条件更新：仅当存储的version仍等于expectedVersion时写入新的
	// players并将version与sequence各加1。版本不匹配时返回 ErrVersionConflict。
	UpdateWithVersion(ctx context.Context, code string, expectedVersion int64, players models.PlayerList) (*models.Game, error)
	Delete(ctx context.Context, code string) error
}

// gameRepo 对局仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建对局仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	now := time.Now()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	if game.LastActivity.IsZero() {
		game.LastActivity = now
	}
	return r.db.WithContext(ctx).Create(game).Error
}

// FindByCode 根据对局码查找
func (r *gameRepo) FindByCode(ctx context.Context, code string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound, "对局码 "+code)
		}
		return nil, err
	}
	return &game, nil
}

// ExistsByCode 检查对局码是否已被占用
func (r *gameRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// UpdateWithVersion 版本守卫下的条件更新（原子compare-and-swap）。
// 更新与回读在同一事务内完成，行锁保证返回的快照就是本次提交的结果，
// 不会读到其他提交者随后写入的更新版本。
func (r *gameRepo) UpdateWithVersion(ctx context.Context, code string, expectedVersion int64, players models.PlayerList) (*models.Game, error) {
	var game models.Game

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.Game{}).
			Where("code = ? AND version = ?", code, expectedVersion).
			Updates(map[string]interface{}{
				"players":       players,
				"version":       gorm.Expr("version + 1"),
				"sequence":      gorm.Expr("sequence + 1"),
				"last_activity": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}

		// 没有命中说明另一个提交者已推进version
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrVersionConflict, "对局码 "+code)
		}

		return tx.Where("code = ?", code).First(&game).Error
	})
	if err != nil {
		return nil, err
	}

	return &game, nil
}

// Delete 删除对局
func (r *gameRepo) Delete(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Game{}).Error
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
