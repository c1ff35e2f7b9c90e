package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlayerColor 玩家颜色（按座位顺序分配）
type PlayerColor string

// 固定四色调色板：调色板长度决定了玩家数量上限
const (
	ColorCrimson PlayerColor = "crimson"
	ColorOcean   PlayerColor = "ocean"
	ColorForest  PlayerColor = "forest"
	ColorAmber   PlayerColor = "amber"
)

// Palette 调色板，下标即座位号（数组类型保证长度是编译期常量）
var Palette = [...]PlayerColor{ColorCrimson, ColorOcean, ColorForest, ColorAmber}

// 玩家数量限制（上限由调色板长度决定）
const (
	MinPlayerCount = 2
	MaxPlayerCount = len(Palette)
)

// DefaultStartingLife 默认起始生命值
const DefaultStartingLife = 40

// Player 玩家信息
type Player struct {
	Name            string      `json:"name"`
	Life            int         `json:"life"`
	Color           PlayerColor `json:"color"`
	CommanderDamage []int       `json:"commander_damage"` // 每个对手一个槽位，下标为对手座位号
}

// Clone 深拷贝玩家
func (p Player) Clone() Player {
	damage := make([]int, len(p.CommanderDamage))
	copy(damage, p.CommanderDamage)
	clone := p
	clone.CommanderDamage = damage
	return clone
}

// PlayerList 玩家列表（以JSON形式持久化）
type PlayerList []Player

// Value 实现driver.Valuer接口
func (l PlayerList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan 实现sql.Scanner接口
func (l *PlayerList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 PlayerList", value)
	}

	return json.Unmarshal(data, l)
}

// Clone 深拷贝玩家列表
func (l PlayerList) Clone() PlayerList {
	clone := make(PlayerList, len(l))
	for i, p := range l {
		clone[i] = p.Clone()
	}
	return clone
}

// NewPlayers 根据玩家数量和起始生命值构建初始玩家列表
func NewPlayers(playerCount, startingLife int) PlayerList {
	players := make(PlayerList, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		players = append(players, Player{
			Name:            fmt.Sprintf("Player %d", i+1),
			Life:            startingLife,
			Color:           Palette[i],
			CommanderDamage: make([]int, playerCount),
		})
	}
	return players
}

// Game 对局快照表
type Game struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	Code         string     `gorm:"uniqueIndex;size:6;not null" json:"code"` // 4-6位大写对局码
	Players      PlayerList `gorm:"type:json;not null" json:"players"`
	PlayerCount  int        `gorm:"not null" json:"player_count"`
	StartingLife int        `gorm:"default:40" json:"starting_life"`
	Sequence     int64      `gorm:"default:0" json:"sequence"`    // 已应用动作数，对外的事件序号
	Version      int64      `gorm:"default:0" json:"-"`           // 乐观并发控制计数器，不对外暴露
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `gorm:"index" json:"last_activity"` // 每次变更刷新，驱动过期清理
}

// TableName 指定表名
func (Game) TableName() string {
	return "games"
}
