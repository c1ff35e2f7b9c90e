package client

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	apperrors "github.com/wfunc/lifecount/internal/errors"
	ws "github.com/wfunc/lifecount/internal/websocket"
	"go.uber.org/zap"
)

// WSConn 会话的WebSocket连接。
// 接收服务端推送的快照并交给调解器，本地编辑仍走HTTP提交。
type WSConn struct {
	session *Session
	conn    *gws.Conn
	logger  *zap.Logger

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Listen 建立WebSocket连接并订阅本对局的推送。
// wsURL形如 ws://host:port/ws。连接断开或上下文取消后返回。
func (s *Session) Listen(ctx context.Context, wsURL string) (*WSConn, error) {
	conn, _, err := gws.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrWebSocketConnect, "WebSocket连接失败")
	}

	wc := &WSConn{
		session: s,
		conn:    conn,
		logger:  s.logger,
		done:    make(chan struct{}),
	}

	if err := wc.send(&ws.Message{
		Type:      ws.MessageTypeJoinGame,
		GameCode:  s.code,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		conn.Close()
		return nil, err
	}

	go wc.readLoop()

	return wc, nil
}

// Done 连接关闭后关闭的通道
func (wc *WSConn) Done() <-chan struct{} {
	return wc.done
}

// Close 关闭连接
func (wc *WSConn) Close() error {
	var err error
	wc.once.Do(func() {
		err = wc.conn.Close()
	})
	return err
}

// RequestSync 通过WebSocket请求同步
func (wc *WSConn) RequestSync() error {
	data, err := json.Marshal(ws.SyncData{ClientSequence: wc.session.Game().Sequence})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat, "编码同步请求失败")
	}

	return wc.send(&ws.Message{
		Type:      ws.MessageTypeSync,
		GameCode:  wc.session.code,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// send 序列化并写出消息
func (wc *WSConn) send(msg *ws.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat, "编码消息失败")
	}

	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()

	if err := wc.conn.WriteMessage(gws.TextMessage, data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrWebSocketSend, "发送消息失败")
	}
	return nil
}

// readLoop 消费服务端推送
func (wc *WSConn) readLoop() {
	defer func() {
		wc.Close()
		close(wc.done)
	}()

	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			if !gws.IsCloseError(err, gws.CloseNormalClosure, gws.CloseGoingAway) {
				wc.logger.Warn("WebSocket读取中断", zap.Error(err))
			}
			return
		}

		// 服务端写泵会把排队消息用换行拼进同一帧
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}

			var msg ws.Message
			if err := json.Unmarshal(line, &msg); err != nil {
				wc.logger.Warn("丢弃无法解析的消息", zap.Error(err))
				continue
			}

			wc.handle(&msg)
		}
	}
}

// handle 分发单条推送
func (wc *WSConn) handle(msg *ws.Message) {
	switch msg.Type {
	case ws.MessageTypeGameState:
		var snapshot Game
		if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
			wc.logger.Warn("解析快照失败", zap.Error(err))
			return
		}
		wc.session.HandleRemoteSnapshot(&snapshot)

	case ws.MessageTypeGameUpdate:
		var update ws.GameUpdateData
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			wc.logger.Warn("解析推送失败", zap.Error(err))
			return
		}
		wc.session.HandleRemoteSnapshot(update.Game)

	case ws.MessageTypeSyncResult:
		// 只在同步结果携带完整快照时采纳，增量同步走HTTP路径
		var full struct {
			Type string       `json:"type"`
			Game *Game `json:"game"`
		}
		if err := json.Unmarshal(msg.Data, &full); err == nil && full.Game != nil {
			wc.session.HandleRemoteSnapshot(full.Game)
		}

	case ws.MessageTypeError:
		var errData ws.ErrorData
		if json.Unmarshal(msg.Data, &errData) == nil {
			wc.logger.Warn("服务端错误推送",
				zap.Int("code", errData.Code),
				zap.String("message", errData.Message))
		}

	case ws.MessageTypeConnected, ws.MessageTypePong, ws.MessageTypeActionAck:
		// 无需处理
	}
}
