package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/lifecount/internal/config"
	apperrors "github.com/wfunc/lifecount/internal/errors"
	"github.com/wfunc/lifecount/internal/game"
	"github.com/wfunc/lifecount/internal/models"
	"github.com/wfunc/lifecount/internal/repository"
	ws "github.com/wfunc/lifecount/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterTestSuite REST接口测试套件
type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *Router
	cancel context.CancelFunc
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		WebSocket: config.WebSocketConfig{Path: "/ws"},
		Game: config.GameConfig{
			CodeLength:          4,
			CodeAttempts:        10,
			DefaultStartingLife: 40,
			SubmitRetries:       3,
			SyncThreshold:       5,
			HistoryLimit:        500,
		},
	}

	hub := ws.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	go hub.Run(ctx)

	suite.router = NewRouter(suite.db, cfg, hub, zap.NewNop())
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.cancel()
	repository.CleanupTestDB(suite.db)
}

func (suite *RouterTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.Engine().ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) createGame() *models.Game {
	w := suite.request(http.MethodPost, "/api/games", CreateGameRequest{StartingLife: 40, PlayerCount: 4})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var snapshot models.Game
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &snapshot))
	return &snapshot
}

// TestHealth 健康检查
func (suite *RouterTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"status":"ok"`)
}

// TestCreateGame 创建对局
func (suite *RouterTestSuite) TestCreateGame() {
	snapshot := suite.createGame()

	assert.Len(suite.T(), snapshot.Code, 4)
	assert.Equal(suite.T(), 4, snapshot.PlayerCount)
	assert.Equal(suite.T(), 40, snapshot.StartingLife)
	assert.Len(suite.T(), snapshot.Players, 4)
}

// TestCreateGame_EmptyBody 空请求体用默认参数
func (suite *RouterTestSuite) TestCreateGame_EmptyBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/games", nil)
	w := httptest.NewRecorder()
	suite.router.Engine().ServeHTTP(w, req)

	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var snapshot models.Game
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(suite.T(), 40, snapshot.StartingLife)
}

// TestFetchGame_NotFound 不存在的对局返回404
func (suite *RouterTestSuite) TestFetchGame_NotFound() {
	w := suite.request(http.MethodGet, "/api/games/ZZZZ", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Contains(suite.T(), w.Body.String(), fmt.Sprintf(`"code":%d`, apperrors.ErrGameNotFound))
}

// TestSubmitAction 提交动作并取回快照与动作
func (suite *RouterTestSuite) TestSubmitAction() {
	snapshot := suite.createGame()

	idx := 0
	delta := -3
	w := suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
		ClientID:    "alice",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp SubmitActionResponse
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), 37, resp.Game.Players[0].Life)
	assert.Equal(suite.T(), int64(1), resp.Action.Sequence)
	assert.Equal(suite.T(), "alice", resp.Action.ClientID)
}

// TestSubmitAction_BadIndex 越界座位号返回400
func (suite *RouterTestSuite) TestSubmitAction_BadIndex() {
	snapshot := suite.createGame()

	idx := 42
	delta := -1
	w := suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestResetGame 重置接口走RESET_GAME动作
func (suite *RouterTestSuite) TestResetGame() {
	snapshot := suite.createGame()

	idx := 0
	delta := -10
	suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
	})

	w := suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/reset", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reset models.Game
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &reset))
	assert.Equal(suite.T(), 40, reset.Players[0].Life)
	assert.Equal(suite.T(), int64(2), reset.Sequence)
}

// TestListHistory 历史查询
func (suite *RouterTestSuite) TestListHistory() {
	snapshot := suite.createGame()

	idx := 0
	delta := -1
	for i := 0; i < 3; i++ {
		suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
			Type:        models.ActionChangeLife,
			PlayerIndex: &idx,
			Payload:     models.Payload{Delta: &delta},
		})
	}

	w := suite.request(http.MethodGet, "/api/games/"+snapshot.Code+"/actions?from_sequence=1", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), 2, resp.Count)
	assert.Equal(suite.T(), int64(2), resp.Actions[0].Sequence)
}

// TestRebuild 重放接口返回标记与动作数
func (suite *RouterTestSuite) TestRebuild() {
	snapshot := suite.createGame()

	idx := 1
	delta := -5
	suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
		Type:        models.ActionChangeLife,
		PlayerIndex: &idx,
		Payload:     models.Payload{Delta: &delta},
	})

	w := suite.request(http.MethodGet, "/api/games/"+snapshot.Code+"/rebuild", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var result game.RebuildResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(suite.T(), result.RebuiltFromActions)
	assert.Equal(suite.T(), 1, result.ActionCount)
	assert.Equal(suite.T(), 35, result.Game.Players[1].Life)
}

// TestSync 同步接口按落后量选择形态
func (suite *RouterTestSuite) TestSync() {
	snapshot := suite.createGame()

	idx := 0
	delta := -1
	for i := 0; i < 6; i++ {
		suite.request(http.MethodPost, "/api/games/"+snapshot.Code+"/actions", SubmitActionRequest{
			Type:        models.ActionChangeLife,
			PlayerIndex: &idx,
			Payload:     models.Payload{Delta: &delta},
		})
	}

	// 阈值为5：落后6走全量
	w := suite.request(http.MethodGet, "/api/games/"+snapshot.Code+"/sync?client_sequence=0", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var full game.SyncResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &full))
	assert.Equal(suite.T(), game.SyncFull, full.Type)
	require.NotNil(suite.T(), full.Game)

	// 落后5走增量
	w = suite.request(http.MethodGet, "/api/games/"+snapshot.Code+"/sync?client_sequence=1", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var incr game.SyncResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &incr))
	assert.Equal(suite.T(), game.SyncIncremental, incr.Type)
	assert.Len(suite.T(), incr.Actions, 5)
	assert.Equal(suite.T(), int64(6), incr.CurrentSequence)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
