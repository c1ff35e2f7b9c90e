// Package client 提供生命计数同步服务器的Go客户端。
// 所有状态变更都以动作形式提交，便利方法负责把"设为某值"换算成增量。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"go.uber.org/zap"
)

// Client HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	clientID   string
	logger     *zap.Logger
}

// Option 客户端配置项
type Option func(*Client)

// WithHTTPClient 指定底层HTTP客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientID 指定客户端标识，默认随机UUID
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithLogger 指定日志器
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clientID:   uuid.New().String(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientID 返回客户端标识
func (c *Client) ClientID() string {
	return c.clientID
}

// createGameRequest 创建对局请求体
type createGameRequest struct {
	StartingLife int `json:"starting_life,omitempty"`
	PlayerCount  int `json:"player_count,omitempty"`
}

// submitActionRequest 提交动作请求体
type submitActionRequest struct {
	Type        ActionType `json:"type"`
	PlayerIndex *int              `json:"player_index,omitempty"`
	Payload     Payload    `json:"payload"`
	ClientID    string            `json:"client_id"`
}

// SubmitResult 提交动作的结果
type SubmitResult struct {
	Game   *Game   `json:"game"`
	Action *Action `json:"action"`
}

// errorResponse 服务端错误响应体
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// CreateGame 创建对局
func (c *Client) CreateGame(ctx context.Context, startingLife, playerCount int) (*Game, error) {
	var snapshot Game
	err := c.do(ctx, http.MethodPost, "/api/games", createGameRequest{
		StartingLife: startingLife,
		PlayerCount:  playerCount,
	}, &snapshot)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FetchGame 查询对局快照
func (c *Client) FetchGame(ctx context.Context, code string) (*Game, error) {
	var snapshot Game
	if err := c.do(ctx, http.MethodGet, "/api/games/"+code, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SubmitAction 提交动作
func (c *Client) SubmitAction(ctx context.Context, code string, actionType ActionType, playerIndex *int, payload Payload) (*SubmitResult, error) {
	var result SubmitResult
	err := c.do(ctx, http.MethodPost, "/api/games/"+code+"/actions", submitActionRequest{
		Type:        actionType,
		PlayerIndex: playerIndex,
		Payload:     payload,
		ClientID:    c.clientID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// historyResponse 历史查询响应体
type historyResponse struct {
	Actions []*Action `json:"actions"`
	Count   int              `json:"count"`
}

// History 查询动作历史
func (c *Client) History(ctx context.Context, code string, fromSequence int64, limit int) ([]*Action, error) {
	path := fmt.Sprintf("/api/games/%s/actions?from_sequence=%d&limit=%d", code, fromSequence, limit)
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

// Sync 按客户端已知序列号请求同步
func (c *Client) Sync(ctx context.Context, code string, clientSequence int64) (*SyncResult, error) {
	path := fmt.Sprintf("/api/games/%s/sync?client_sequence=%d", code, clientSequence)
	var result SyncResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResetGame 重置对局
func (c *Client) ResetGame(ctx context.Context, code string) (*Game, error) {
	path := fmt.Sprintf("/api/games/%s/reset?client_id=%s", code, c.clientID)
	var snapshot Game
	if err := c.do(ctx, http.MethodPost, path, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// do 执行HTTP请求并解码响应
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrInvalidParam, "编码请求失败")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidParam, "构造请求失败")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrRequestFailed, "请求服务器失败")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrRequestFailed, "读取响应失败")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Code != 0 {
			return apperrors.New(apperrors.ErrorCode(errResp.Code), errResp.Error)
		}
		return apperrors.Newf(apperrors.ErrUnknown, "服务端返回 %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInvalidParam, "解码响应失败")
		}
	}

	return nil
}
