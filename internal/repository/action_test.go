package repository

import (
	"context"
	"testing"
	"time"

	"github.com/wfunc/lifecount/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ActionRepositoryTestSuite 动作仓储测试套件
type ActionRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	actionRepo ActionRepository
}

func (suite *ActionRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.actionRepo = NewActionRepository(suite.db)
}

func (suite *ActionRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *ActionRepositoryTestSuite) appendAction(code string, seq int64) {
	idx := 0
	delta := -1
	err := suite.actionRepo.Append(context.Background(), &models.Action{
		GameCode:    code,
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
		Sequence:    seq,
		ClientID:    "test",
	})
	require.NoError(suite.T(), err)
}

// TestAppend 追加动作并回填时间戳
func (suite *ActionRepositoryTestSuite) TestAppend() {
	ctx := context.Background()

	idx := 1
	delta := -3
	action := &models.Action{
		GameCode:    "AB23",
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
		Sequence:    1,
		ClientID:    "client-1",
	}

	require.NoError(suite.T(), suite.actionRepo.Append(ctx, action))
	assert.NotZero(suite.T(), action.ID)
	assert.False(suite.T(), action.Timestamp.IsZero())

	// 负载的JSON往返
	actions, err := suite.actionRepo.ListByGame(ctx, "AB23", 0, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), actions, 1)
	require.NotNil(suite.T(), actions[0].Payload.Delta)
	assert.Equal(suite.T(), -3, *actions[0].Payload.Delta)
	require.NotNil(suite.T(), actions[0].PlayerIndex)
	assert.Equal(suite.T(), 1, *actions[0].PlayerIndex)
}

// TestAppend_KeepsExplicitTimestamp 显式时间戳不被覆盖
func (suite *ActionRepositoryTestSuite) TestAppend_KeepsExplicitTimestamp() {
	ctx := context.Background()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	action := &models.Action{
		GameCode:  "AB23",
		Type:      models.ActionResetGame,
		Sequence:  1,
		Timestamp: ts,
	}

	require.NoError(suite.T(), suite.actionRepo.Append(ctx, action))
	assert.True(suite.T(), action.Timestamp.Equal(ts))
}

// TestListByGame 按序号范围升序查询
func (suite *ActionRepositoryTestSuite) TestListByGame() {
	ctx := context.Background()

	for seq := int64(1); seq <= 5; seq++ {
		suite.appendAction("AB23", seq)
	}
	// 其他对局的动作不应混入
	suite.appendAction("XY45", 1)

	actions, err := suite.actionRepo.ListByGame(ctx, "AB23", 2, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), actions, 3)
	assert.Equal(suite.T(), int64(3), actions[0].Sequence)
	assert.Equal(suite.T(), int64(5), actions[2].Sequence)
}

// TestListByGame_Limit 限制返回数量
func (suite *ActionRepositoryTestSuite) TestListByGame_Limit() {
	ctx := context.Background()

	for seq := int64(1); seq <= 5; seq++ {
		suite.appendAction("AB23", seq)
	}

	actions, err := suite.actionRepo.ListByGame(ctx, "AB23", 0, 2)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), actions, 2)
	assert.Equal(suite.T(), int64(1), actions[0].Sequence)
	assert.Equal(suite.T(), int64(2), actions[1].Sequence)
}

// TestCountByGame 按对局统计动作数量
func (suite *ActionRepositoryTestSuite) TestCountByGame() {
	ctx := context.Background()

	count, err := suite.actionRepo.CountByGame(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)

	for seq := int64(1); seq <= 3; seq++ {
		suite.appendAction("AB23", seq)
	}

	count, err = suite.actionRepo.CountByGame(ctx, "AB23")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), count)
}

func TestActionRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(ActionRepositoryTestSuite))
}
