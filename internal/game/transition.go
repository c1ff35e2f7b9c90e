package game

import (
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/models"
)

// Apply 状态转移函数：对快照应用一个动作，返回新的玩家列表。
// 纯函数，不修改入参，不触碰sequence/version（由提交引擎负责）。
// 对任何快照和已通过Validate的动作都必然正常返回。
func Apply(game *models.Game, action *models.Action) models.PlayerList {
	players := game.Players.Clone()

	switch action.Type {
	case models.ActionChangeLife:
		idx := indexOf(action.PlayerIndex)
		players[idx].Life += intOf(action.Payload.Delta)

	case models.ActionChangeCommanderDamage:
		idx := indexOf(action.PlayerIndex)
		from := intOf(action.Payload.FromPlayerIndex)
		// 指挥官伤害只增不负；生命值变化由独立的CHANGE_LIFE动作承担，
		// 两者解耦以保证各自可独立重放
		next := players[idx].CommanderDamage[from] + intOf(action.Payload.Delta)
		if next < 0 {
			next = 0
		}
		players[idx].CommanderDamage[from] = next

	case models.ActionSetPlayerName:
		idx := indexOf(action.PlayerIndex)
		if action.Payload.Name != nil {
			players[idx].Name = *action.Payload.Name
		}

	case models.ActionResetGame:
		for i := range players {
			players[i].Life = game.StartingLife
			players[i].CommanderDamage = make([]int, game.PlayerCount)
		}
	}

	return players
}

// Validate 在应用前校验动作：类型、目标座位号与负载形状。
// 越界座位号必须在这里拦截，转移函数只定义在合法输入上。
func Validate(game *models.Game, actionType models.ActionType, playerIndex *int, payload models.Payload) error {
	if !actionType.IsValid() {
		return apperrors.Newf(apperrors.ErrInvalidAction, "未知动作类型 %q", actionType)
	}

	// RESET_GAME 不针对单个玩家
	if actionType == models.ActionResetGame {
		return nil
	}

	if playerIndex == nil {
		return apperrors.Newf(apperrors.ErrInvalidAction, "动作 %s 缺少玩家座位号", actionType)
	}
	if *playerIndex < 0 || *playerIndex >= game.PlayerCount {
		return apperrors.Newf(apperrors.ErrPlayerIndexRange, "座位号 %d 超出范围 [0,%d)", *playerIndex, game.PlayerCount)
	}

	switch actionType {
	case models.ActionChangeLife:
		if payload.Delta == nil {
			return apperrors.New(apperrors.ErrInvalidAction, "CHANGE_LIFE 缺少 delta")
		}

	case models.ActionChangeCommanderDamage:
		if payload.Delta == nil {
			return apperrors.New(apperrors.ErrInvalidAction, "CHANGE_COMMANDER_DAMAGE 缺少 delta")
		}
		if payload.FromPlayerIndex == nil {
			return apperrors.New(apperrors.ErrInvalidAction, "CHANGE_COMMANDER_DAMAGE 缺少 from_player_index")
		}
		if *payload.FromPlayerIndex < 0 || *payload.FromPlayerIndex >= game.PlayerCount {
			return apperrors.Newf(apperrors.ErrPlayerIndexRange, "伤害来源座位号 %d 超出范围 [0,%d)", *payload.FromPlayerIndex, game.PlayerCount)
		}

	case models.ActionSetPlayerName:
		if payload.Name == nil {
			return apperrors.New(apperrors.ErrInvalidAction, "SET_PLAYER_NAME 缺少 name")
		}
	}

	return nil
}

func indexOf(idx *int) int {
	if idx == nil {
		return 0
	}
	return *idx
}

func intOf(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
