package game

import (
	"context"
	"math/rand"
	"strings"

	"github.com/wfunc/lifecount/internal/config"
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/models"
	"github.com/wfunc/lifecount/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// codeAlphabet 对局码字符集，去掉了易混淆的 I/O/0/1
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service 对局服务：对外的操作入口，组合提交引擎、历史服务与同步协议
type Service struct {
	cfg     *config.GameConfig
	games   repository.GameRepository
	actions repository.ActionRepository
	engine  *Engine
	history *History
	logger  *zap.Logger
}

// NewService 创建对局服务
func NewService(db *gorm.DB, cfg *config.GameConfig, logger *zap.Logger) *Service {
	games := repository.NewGameRepository(db)
	actions := repository.NewActionRepository(db)

	return &Service{
		cfg:     cfg,
		games:   games,
		actions: actions,
		engine:  NewEngine(games, actions, cfg.SubmitRetries, logger),
		history: NewHistory(games, actions, cfg.HistoryLimit, logger),
		logger:  logger,
	}
}

// SetBroadcaster 设置提交成功后的广播器
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.engine.SetBroadcaster(b)
}

// Engine 暴露提交引擎（测试用）
func (s *Service) Engine() *Engine {
	return s.engine
}

// History 暴露历史服务
func (s *Service) History() *History {
	return s.history
}

// CreateGame 创建对局：生成唯一对局码并以初始玩家列表落库
func (s *Service) CreateGame(ctx context.Context, startingLife, playerCount int) (*models.Game, error) {
	if startingLife <= 0 {
		startingLife = s.cfg.DefaultStartingLife
	}

	// 玩家数量夹取到调色板允许的范围
	if playerCount < models.MinPlayerCount {
		playerCount = models.MinPlayerCount
	}
	if playerCount > models.MaxPlayerCount {
		playerCount = models.MaxPlayerCount
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	game := &models.Game{
		Code:         code,
		Players:      models.NewPlayers(playerCount, startingLife),
		PlayerCount:  playerCount,
		StartingLife: startingLife,
	}

	if err := s.games.Create(ctx, game); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.logger.Info("对局已创建",
		zap.String("game_code", game.Code),
		zap.Int("player_count", playerCount),
		zap.Int("starting_life", startingLife))

	return game, nil
}

// FetchGame 按对局码读取快照
func (s *Service) FetchGame(ctx context.Context, gameCode string) (*models.Game, error) {
	return s.games.FindByCode(ctx, strings.ToUpper(gameCode))
}

// SubmitAction 提交动作（见提交引擎）
func (s *Service) SubmitAction(ctx context.Context, gameCode string, actionType models.ActionType, playerIndex *int, payload models.Payload, clientID string) (*models.Game, *models.Action, error) {
	return s.engine.Submit(ctx, gameCode, actionType, playerIndex, payload, clientID)
}

// ResetGame 重置对局：通过提交RESET_GAME动作完成，保持事件日志权威
func (s *Service) ResetGame(ctx context.Context, gameCode, clientID string) (*models.Game, error) {
	if clientID == "" {
		clientID = "server"
	}
	game, _, err := s.engine.Submit(ctx, gameCode, models.ActionResetGame, nil, models.Payload{}, clientID)
	return game, err
}

// ListHistory 查询动作历史
func (s *Service) ListHistory(ctx context.Context, gameCode string, fromSequence int64, limit int) ([]*models.Action, error) {
	return s.history.List(ctx, gameCode, fromSequence, limit)
}

// Rebuild 从动作历史重建快照
func (s *Service) Rebuild(ctx context.Context, gameCode string) (*RebuildResult, error) {
	return s.history.Rebuild(ctx, gameCode)
}

// generateCode 生成未被占用的对局码，有限次重试
func (s *Service) generateCode(ctx context.Context) (string, error) {
	length := s.cfg.CodeLength
	if length < 4 {
		length = 4
	}
	attempts := s.cfg.CodeAttempts
	if attempts <= 0 {
		attempts = 10
	}

	for i := 0; i < attempts; i++ {
		code := randomCode(length)
		exists, err := s.games.ExistsByCode(ctx, code)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
		if !exists {
			return code, nil
		}
	}

	return "", apperrors.Newf(apperrors.ErrCodeGeneration, "连续 %d 次生成的对局码均已被占用", attempts)
}

// randomCode 从字符集生成随机对局码
func randomCode(length int) string {
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return builder.String()
}
