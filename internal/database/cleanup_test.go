package database

import (
	"context"
	"testing"
	"time"

	"github.com/wfunc/lifecount/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SweeperTestSuite 过期清理测试套件
type SweeperTestSuite struct {
	suite.Suite
	sweeper *Sweeper
}

func (suite *SweeperTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(&models.Game{}, &models.Action{}))

	DB = db
	suite.sweeper = NewSweeper(24*time.Hour, time.Minute)
}

func (suite *SweeperTestSuite) TearDownTest() {
	sqlDB, _ := DB.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
	DB = nil
}

func (suite *SweeperTestSuite) createGame(code string, lastActivity time.Time) {
	game := &models.Game{
		Code:         code,
		Players:      models.NewPlayers(2, 40),
		PlayerCount:  2,
		StartingLife: 40,
		CreatedAt:    lastActivity,
		LastActivity: lastActivity,
	}
	require.NoError(suite.T(), DB.Create(game).Error)
}

func (suite *SweeperTestSuite) appendAction(code string, timestamp time.Time) {
	require.NoError(suite.T(), DB.Create(&models.Action{
		GameCode:  code,
		Type:      models.ActionResetGame,
		Sequence:  1,
		Timestamp: timestamp,
	}).Error)
}

// TestSweepOnce_RemovesExpired 过期对局连同动作一起删除
func (suite *SweeperTestSuite) TestSweepOnce_RemovesExpired() {
	now := time.Now()
	suite.createGame("OLD1", now.Add(-48*time.Hour))
	suite.appendAction("OLD1", now.Add(-48*time.Hour))
	suite.createGame("LIVE", now)
	suite.appendAction("LIVE", now)

	require.NoError(suite.T(), suite.sweeper.SweepOnce(context.Background()))

	var games int64
	require.NoError(suite.T(), DB.Model(&models.Game{}).Count(&games).Error)
	assert.Equal(suite.T(), int64(1), games)

	var actions int64
	require.NoError(suite.T(), DB.Model(&models.Action{}).Where("game_code = ?", "OLD1").Count(&actions).Error)
	assert.Zero(suite.T(), actions)

	// 活跃对局不受影响
	var live models.Game
	require.NoError(suite.T(), DB.Where("code = ?", "LIVE").First(&live).Error)
}

// TestSweepOnce_RemovesOrphanActions 孤立的过期动作也被清理
func (suite *SweeperTestSuite) TestSweepOnce_RemovesOrphanActions() {
	now := time.Now()
	suite.appendAction("GONE", now.Add(-48*time.Hour))
	suite.appendAction("GONE", now)

	require.NoError(suite.T(), suite.sweeper.SweepOnce(context.Background()))

	var actions int64
	require.NoError(suite.T(), DB.Model(&models.Action{}).Where("game_code = ?", "GONE").Count(&actions).Error)
	assert.Equal(suite.T(), int64(1), actions)
}

// TestSweepOnce_NothingExpired 没有过期数据时不做任何删除
func (suite *SweeperTestSuite) TestSweepOnce_NothingExpired() {
	now := time.Now()
	suite.createGame("LIVE", now)
	suite.appendAction("LIVE", now)

	require.NoError(suite.T(), suite.sweeper.SweepOnce(context.Background()))

	var games int64
	require.NoError(suite.T(), DB.Model(&models.Game{}).Count(&games).Error)
	assert.Equal(suite.T(), int64(1), games)
}

func TestSweeperTestSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}
