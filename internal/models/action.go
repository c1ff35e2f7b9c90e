package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType 动作类型
type ActionType string

const (
	ActionChangeLife            ActionType = "CHANGE_LIFE"
	ActionChangeCommanderDamage ActionType = "CHANGE_COMMANDER_DAMAGE"
	ActionSetPlayerName         ActionType = "SET_PLAYER_NAME"
	ActionResetGame             ActionType = "RESET_GAME"
)

// IsValid 检查动作类型是否合法
func (t ActionType) IsValid() bool {
	switch t {
	case ActionChangeLife, ActionChangeCommanderDamage, ActionSetPlayerName, ActionResetGame:
		return true
	}
	return false
}

// Payload 动作负载（按动作类型取用不同字段）
type Payload struct {
	Delta           *int    `json:"delta,omitempty"`             // CHANGE_LIFE / CHANGE_COMMANDER_DAMAGE
	FromPlayerIndex *int    `json:"from_player_index,omitempty"` // CHANGE_COMMANDER_DAMAGE 的伤害来源座位
	Name            *string `json:"name,omitempty"`              // SET_PLAYER_NAME
}

// Value 实现driver.Valuer接口
func (p Payload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan 实现sql.Scanner接口
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = Payload{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 Payload", value)
	}

	return json.Unmarshal(data, p)
}

// Action 动作记录表（追加写入，提交后不可变）
type Action struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	GameCode    string     `gorm:"index:idx_actions_game_seq,priority:1;size:6;not null" json:"game_code"`
	Type        ActionType `gorm:"size:32;not null" json:"type"`
	PlayerIndex *int       `json:"player_index,omitempty"` // RESET_GAME 无目标玩家
	Payload     Payload    `gorm:"type:json;not null" json:"payload"`
	Sequence    int64      `gorm:"index:idx_actions_game_seq,priority:2;not null" json:"sequence"`
	ClientID    string     `gorm:"size:64;not null" json:"client_id"` // 提交方标识，仅用于诊断
	Timestamp   time.Time  `gorm:"index" json:"timestamp"`
}

// TableName 指定表名
func (Action) TableName() string {
	return "actions"
}
