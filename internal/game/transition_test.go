package game

import (
	"testing"

	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// TransitionTestSuite 状态转移函数测试套件
type TransitionTestSuite struct {
	suite.Suite
	game *models.Game
}

func (suite *TransitionTestSuite) SetupTest() {
	suite.game = &models.Game{
		Code:         "AB23",
		Players:      models.NewPlayers(4, 40),
		PlayerCount:  4,
		StartingLife: 40,
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

// TestApply_ChangeLife 测试生命值增减
func (suite *TransitionTestSuite) TestApply_ChangeLife() {
	players := Apply(suite.game, &models.Action{
		Type:        models.ActionChangeLife,
		PlayerIndex: intPtr(1),
		Payload:     models.Payload{Delta: intPtr(-3)},
	})

	assert.Equal(suite.T(), 37, players[1].Life)
	// 其他玩家不受影响
	assert.Equal(suite.T(), 40, players[0].Life)
	assert.Equal(suite.T(), 40, players[2].Life)
}

// TestApply_LifeCanGoNegative 生命值不做下限截断
func (suite *TransitionTestSuite) TestApply_LifeCanGoNegative() {
	players := Apply(suite.game, &models.Action{
		Type:        models.ActionChangeLife,
		PlayerIndex: intPtr(0),
		Payload:     models.Payload{Delta: intPtr(-45)},
	})

	assert.Equal(suite.T(), -5, players[0].Life)
}

// TestApply_Immutable 转移函数不修改入参快照
func (suite *TransitionTestSuite) TestApply_Immutable() {
	_ = Apply(suite.game, &models.Action{
		Type:        models.ActionChangeLife,
		PlayerIndex: intPtr(0),
		Payload:     models.Payload{Delta: intPtr(-10)},
	})

	assert.Equal(suite.T(), 40, suite.game.Players[0].Life)
}

// TestApply_CommanderDamage 测试指挥官伤害累积
func (suite *TransitionTestSuite) TestApply_CommanderDamage() {
	players := Apply(suite.game, &models.Action{
		Type:        models.ActionChangeCommanderDamage,
		PlayerIndex: intPtr(2),
		Payload:     models.Payload{Delta: intPtr(5), FromPlayerIndex: intPtr(0)},
	})

	assert.Equal(suite.T(), 5, players[2].CommanderDamage[0])
	// 生命值与指挥官伤害解耦，不随之变动
	assert.Equal(suite.T(), 40, players[2].Life)
}

// TestApply_CommanderDamageClamp 指挥官伤害下限为0
func (suite *TransitionTestSuite) TestApply_CommanderDamageClamp() {
	suite.game.Players[2].CommanderDamage[0] = 3

	players := Apply(suite.game, &models.Action{
		Type:        models.ActionChangeCommanderDamage,
		PlayerIndex: intPtr(2),
		Payload:     models.Payload{Delta: intPtr(-10), FromPlayerIndex: intPtr(0)},
	})

	assert.Equal(suite.T(), 0, players[2].CommanderDamage[0])
}

// TestApply_SetPlayerName 测试设置玩家名称
func (suite *TransitionTestSuite) TestApply_SetPlayerName() {
	players := Apply(suite.game, &models.Action{
		Type:        models.ActionSetPlayerName,
		PlayerIndex: intPtr(3),
		Payload:     models.Payload{Name: strPtr("Alice")},
	})

	assert.Equal(suite.T(), "Alice", players[3].Name)
}

// TestApply_ResetGame 重置恢复生命并清空伤害，保留名称与颜色
func (suite *TransitionTestSuite) TestApply_ResetGame() {
	suite.game.Players[0].Life = 12
	suite.game.Players[0].Name = "Bob"
	suite.game.Players[1].CommanderDamage[0] = 21

	players := Apply(suite.game, &models.Action{
		Type: models.ActionResetGame,
	})

	assert.Equal(suite.T(), 40, players[0].Life)
	assert.Equal(suite.T(), "Bob", players[0].Name)
	assert.Equal(suite.T(), suite.game.Players[0].Color, players[0].Color)
	for _, dmg := range players[1].CommanderDamage {
		assert.Zero(suite.T(), dmg)
	}
}

// TestValidate_UnknownType 未知动作类型被拒绝
func (suite *TransitionTestSuite) TestValidate_UnknownType() {
	err := Validate(suite.game, "EXPLODE", intPtr(0), models.Payload{})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrInvalidAction, apperrors.GetCode(err))
}

// TestValidate_PlayerIndexRange 座位号越界被拒绝
func (suite *TransitionTestSuite) TestValidate_PlayerIndexRange() {
	cases := []int{-1, 4, 100}
	for _, idx := range cases {
		err := Validate(suite.game, models.ActionChangeLife, intPtr(idx), models.Payload{Delta: intPtr(1)})
		assert.Error(suite.T(), err)
		assert.Equal(suite.T(), apperrors.ErrPlayerIndexRange, apperrors.GetCode(err))
	}
}

// TestValidate_MissingPlayerIndex 非重置动作必须带座位号
func (suite *TransitionTestSuite) TestValidate_MissingPlayerIndex() {
	err := Validate(suite.game, models.ActionChangeLife, nil, models.Payload{Delta: intPtr(1)})
	assert.Error(suite.T(), err)
}

// TestValidate_ResetNeedsNoIndex 重置动作不需要座位号
func (suite *TransitionTestSuite) TestValidate_ResetNeedsNoIndex() {
	err := Validate(suite.game, models.ActionResetGame, nil, models.Payload{})
	assert.NoError(suite.T(), err)
}

// TestValidate_MissingPayloadFields 负载字段缺失被拒绝
func (suite *TransitionTestSuite) TestValidate_MissingPayloadFields() {
	err := Validate(suite.game, models.ActionChangeLife, intPtr(0), models.Payload{})
	assert.Error(suite.T(), err)

	err = Validate(suite.game, models.ActionChangeCommanderDamage, intPtr(0), models.Payload{Delta: intPtr(1)})
	assert.Error(suite.T(), err)

	err = Validate(suite.game, models.ActionSetPlayerName, intPtr(0), models.Payload{})
	assert.Error(suite.T(), err)
}

// TestValidate_CommanderDamageFromRange 伤害来源座位号越界被拒绝
func (suite *TransitionTestSuite) TestValidate_CommanderDamageFromRange() {
	err := Validate(suite.game, models.ActionChangeCommanderDamage, intPtr(0), models.Payload{
		Delta:           intPtr(1),
		FromPlayerIndex: intPtr(4),
	})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrPlayerIndexRange, apperrors.GetCode(err))
}

func TestTransitionTestSuite(t *testing.T) {
	suite.Run(t, new(TransitionTestSuite))
}
