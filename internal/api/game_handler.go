package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/game"
	"github.com/wfunc/lifecount/internal/models"
	"go.uber.org/zap"
)

// GameHandler 对局REST处理器
type GameHandler struct {
	service *game.Service
	logger  *zap.Logger
}

// NewGameHandler 创建对局处理器
func NewGameHandler(service *game.Service, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		service: service,
		logger:  logger,
	}
}

// CreateGameRequest 创建对局请求
type CreateGameRequest struct {
	StartingLife int `json:"starting_life"`
	PlayerCount  int `json:"player_count"`
}

// SubmitActionRequest 提交动作请求
type SubmitActionRequest struct {
	Type        models.ActionType `json:"type" binding:"required"`
	PlayerIndex *int              `json:"player_index,omitempty"`
	Payload     models.Payload    `json:"payload"`
	ClientID    string            `json:"client_id"`
}

// SubmitActionResponse 提交动作响应
type SubmitActionResponse struct {
	Game   *models.Game   `json:"game"`
	Action *models.Action `json:"action"`
}

// HistoryResponse 历史查询响应
type HistoryResponse struct {
	Actions []*models.Action `json:"actions"`
	Count   int              `json:"count"`
}

// CreateGame 创建对局
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	snapshot, err := h.service.CreateGame(c.Request.Context(), req.StartingLife, req.PlayerCount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

// FetchGame 查询对局快照
func (h *GameHandler) FetchGame(c *gin.Context) {
	snapshot, err := h.service.FetchGame(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ResetGame 重置对局（以RESET_GAME动作提交）
func (h *GameHandler) ResetGame(c *gin.Context) {
	snapshot, err := h.service.ResetGame(c.Request.Context(), c.Param("code"), c.Query("client_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// SubmitAction 提交动作
func (h *GameHandler) SubmitAction(c *gin.Context) {
	var req SubmitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	snapshot, action, err := h.service.SubmitAction(
		c.Request.Context(),
		c.Param("code"),
		req.Type,
		req.PlayerIndex,
		req.Payload,
		req.ClientID,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitActionResponse{
		Game:   snapshot,
		Action: action,
	})
}

// ListHistory 查询动作历史
func (h *GameHandler) ListHistory(c *gin.Context) {
	fromSequence, _ := strconv.ParseInt(c.DefaultQuery("from_sequence", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	actions, err := h.service.ListHistory(c.Request.Context(), c.Param("code"), fromSequence, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Actions: actions,
		Count:   len(actions),
	})
}

// Rebuild 从动作历史重建快照
func (h *GameHandler) Rebuild(c *gin.Context) {
	result, err := h.service.Rebuild(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Sync 同步落后的客户端
func (h *GameHandler) Sync(c *gin.Context) {
	clientSequence, _ := strconv.ParseInt(c.DefaultQuery("client_sequence", "0"), 10, 64)

	result, err := h.service.Sync(c.Request.Context(), c.Param("code"), clientSequence)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError 按错误码映射HTTP状态
func (h *GameHandler) respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrGameNotFound, apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrInvalidAction, apperrors.ErrPlayerIndexRange,
		apperrors.ErrInvalidPlayerCount, apperrors.ErrInvalidParam:
		status = http.StatusBadRequest
	case apperrors.ErrConcurrencyExhausted:
		// 瞬时失败，调用方可整体重试
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  int(code),
	})
}
