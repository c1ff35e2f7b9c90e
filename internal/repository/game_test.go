package repository

import (
	"context"
	"testing"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// GameRepositoryTestSuite 对局仓储测试套件
type GameRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	gameRepo GameRepository
}

func (suite *GameRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.gameRepo = NewGameRepository(suite.db)
}

func (suite *GameRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestCreate 测试创建对局
func (suite *GameRepositoryTestSuite) TestCreate() {
	ctx := context.Background()

	game := CreateTestGame("AB23", 4, 40)
	err := suite.gameRepo.Create(ctx, game)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), game.ID)
	assert.False(suite.T(), game.LastActivity.IsZero())

	// 验证数据，含玩家列表的JSON往返
	found, err := suite.gameRepo.FindByCode(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, found.PlayerCount)
	require.Len(suite.T(), found.Players, 4)
	assert.Equal(suite.T(), 40, found.Players[0].Life)
	assert.Len(suite.T(), found.Players[0].CommanderDamage, 4)
}

// TestCreate_DuplicateCode 对局码唯一
func (suite *GameRepositoryTestSuite) TestCreate_DuplicateCode() {
	ctx := context.Background()

	require.NoError(suite.T(), suite.gameRepo.Create(ctx, CreateTestGame("AB23", 4, 40)))
	err := suite.gameRepo.Create(ctx, CreateTestGame("AB23", 2, 20))
	assert.Error(suite.T(), err)
}

// TestFindByCode_NotFound 不存在的对局码
func (suite *GameRepositoryTestSuite) TestFindByCode_NotFound() {
	_, err := suite.gameRepo.FindByCode(context.Background(), "ZZZZ")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrGameNotFound, apperrors.GetCode(err))
}

// TestExistsByCode 测试对局码占用检查
func (suite *GameRepositoryTestSuite) TestExistsByCode() {
	ctx := context.Background()

	exists, err := suite.gameRepo.ExistsByCode(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), exists)

	require.NoError(suite.T(), suite.gameRepo.Create(ctx, CreateTestGame("AB23", 4, 40)))

	exists, err = suite.gameRepo.ExistsByCode(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), exists)
}

// TestUpdateWithVersion 版本匹配时更新并推进version与sequence
func (suite *GameRepositoryTestSuite) TestUpdateWithVersion() {
	ctx := context.Background()

	game := CreateTestGame("AB23", 4, 40)
	require.NoError(suite.T(), suite.gameRepo.Create(ctx, game))

	players := game.Players.Clone()
	players[0].Life = 35

	updated, err := suite.gameRepo.UpdateWithVersion(ctx, "AB23", 0, players)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 35, updated.Players[0].Life)
	assert.Equal(suite.T(), int64(1), updated.Version)
	assert.Equal(suite.T(), int64(1), updated.Sequence)
	assert.True(suite.T(), updated.LastActivity.After(game.LastActivity) ||
		updated.LastActivity.Equal(game.LastActivity))
}

// TestUpdateWithVersion_ReturnsOwnCommit 返回的快照就是本次提交的结果，
// 连续提交时各自拿到自己那一版的players与序号
func (suite *GameRepositoryTestSuite) TestUpdateWithVersion_ReturnsOwnCommit() {
	ctx := context.Background()

	game := CreateTestGame("AB23", 2, 40)
	require.NoError(suite.T(), suite.gameRepo.Create(ctx, game))

	for i := 1; i <= 3; i++ {
		players := game.Players.Clone()
		players[0].Life = 40 - i

		updated, err := suite.gameRepo.UpdateWithVersion(ctx, "AB23", int64(i-1), players)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), 40-i, updated.Players[0].Life)
		assert.Equal(suite.T(), int64(i), updated.Version)
		assert.Equal(suite.T(), int64(i), updated.Sequence)
	}
}

// TestUpdateWithVersion_StaleVersion 版本不匹配时返回冲突且不写入
func (suite *GameRepositoryTestSuite) TestUpdateWithVersion_StaleVersion() {
	ctx := context.Background()

	game := CreateTestGame("AB23", 4, 40)
	require.NoError(suite.T(), suite.gameRepo.Create(ctx, game))

	players := game.Players.Clone()
	players[0].Life = 35
	_, err := suite.gameRepo.UpdateWithVersion(ctx, "AB23", 0, players)
	require.NoError(suite.T(), err)

	// 携带过期版本的第二个提交者落空
	stale := game.Players.Clone()
	stale[0].Life = 30
	_, err = suite.gameRepo.UpdateWithVersion(ctx, "AB23", 0, stale)
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrVersionConflict, apperrors.GetCode(err))

	// 第一个提交者的写入未被覆盖
	found, err := suite.gameRepo.FindByCode(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 35, found.Players[0].Life)
	assert.Equal(suite.T(), int64(1), found.Version)
}

// TestUpdateWithVersion_GameMissing 对不存在的对局更新返回冲突
func (suite *GameRepositoryTestSuite) TestUpdateWithVersion_GameMissing() {
	_, err := suite.gameRepo.UpdateWithVersion(context.Background(), "ZZZZ", 0, models.NewPlayers(2, 20))
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrVersionConflict, apperrors.GetCode(err))
}

// TestDelete 测试删除对局
func (suite *GameRepositoryTestSuite) TestDelete() {
	ctx := context.Background()

	require.NoError(suite.T(), suite.gameRepo.Create(ctx, CreateTestGame("AB23", 4, 40)))
	require.NoError(suite.T(), suite.gameRepo.Delete(ctx, "AB23"))

	_, err := suite.gameRepo.FindByCode(ctx, "AB23")
	assert.Error(suite.T(), err)
}

func TestGameRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(GameRepositoryTestSuite))
}
