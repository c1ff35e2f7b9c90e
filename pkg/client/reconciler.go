package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 调解器状态
type State int

const (
	// StateIdle 空闲，远端快照直接采纳
	StateIdle State = iota
	// StateLocallyActive 本地编辑中，远端快照进入缓冲
	StateLocallyActive
)

const (
	// 本地编辑静默多久后开始调解
	defaultDebounce = 1500 * time.Millisecond
	// 重推后等待服务端处理的时长
	defaultSettle = 300 * time.Millisecond
	// 调解动作的超时
	resolveTimeout = 10 * time.Second
)

// ReconcilerConfig 调解器依赖
type ReconcilerConfig struct {
	// Local 返回当前本地玩家状态
	Local func() PlayerList
	// Adopt 采纳远端快照为本地状态
	Adopt func(*Game)
	// Push 把单个玩家的本地状态重推到服务端
	Push func(ctx context.Context, index int, local, remote Player) error
	// Refetch 重新拉取权威快照
	Refetch func(ctx context.Context) (*Game, error)

	// Debounce 本地编辑静默窗口，零值用默认1.5秒
	Debounce time.Duration
	// Settle 重推后的等待时长，零值用默认
	Settle time.Duration

	Logger *zap.Logger
}

// Reconciler 本地优先的冲突调解器。
// 本地编辑期间到达的远端快照只缓冲最新一份，编辑静默后统一调解：
// 字段一致则采纳远端（可能携带更新的元数据），不一致则以本地为准重推，
// 随后重新拉取权威快照收敛。
type Reconciler struct {
	mu      sync.Mutex
	state   State
	pending *Game
	timer   *time.Timer
	stopped bool

	local    func() PlayerList
	adopt    func(*Game)
	push     func(ctx context.Context, index int, local, remote Player) error
	refetch  func(ctx context.Context) (*Game, error)
	debounce time.Duration
	settle   time.Duration
	logger   *zap.Logger
}

// NewReconciler 创建调解器
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Reconciler{
		state:    StateIdle,
		local:    cfg.Local,
		adopt:    cfg.Adopt,
		push:     cfg.Push,
		refetch:  cfg.Refetch,
		debounce: cfg.Debounce,
		settle:   cfg.Settle,
		logger:   cfg.Logger,
	}
}

// State 返回当前状态
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LocalMutation 记录一次本地编辑。
// 进入（或保持）本地活跃状态并重置静默计时器。
func (r *Reconciler) LocalMutation() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	r.state = StateLocallyActive

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.onQuiesce)
}

// RemoteSnapshot 处理服务端推送的快照。
// 空闲时直接采纳；本地活跃时只保留最新一份待调解。
func (r *Reconciler) RemoteSnapshot(snapshot *Game) {
	if snapshot == nil {
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}

	if r.state == StateLocallyActive {
		// 后到的快照覆盖先到的
		r.pending = snapshot
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.adopt(snapshot)
}

// Stop 停止调解器，之后的事件全部忽略
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// onQuiesce 静默计时器到期，执行调解
func (r *Reconciler) onQuiesce() {
	r.mu.Lock()
	if r.stopped || r.state != StateLocallyActive {
		r.mu.Unlock()
		return
	}
	r.state = StateIdle
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	// 活跃窗口内没有远端推送，无需调解
	if pending == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	r.resolve(ctx, pending)
}

// resolve 对比本地与缓冲的远端快照并收敛
func (r *Reconciler) resolve(ctx context.Context, remote *Game) {
	local := r.local()

	diverged := divergedPlayers(local, remote.Players)
	if len(diverged) == 0 {
		// 字段完全一致，远端快照可能携带更新的序列号等元数据
		r.adopt(remote)
		return
	}

	r.logger.Info("本地与远端状态分歧，以本地为准重推",
		zap.String("game_code", remote.Code),
		zap.Ints("players", diverged))

	for _, index := range diverged {
		if index >= len(local) || index >= len(remote.Players) {
			continue
		}
		if err := r.push(ctx, index, local[index], remote.Players[index]); err != nil {
			r.logger.Error("重推本地状态失败",
				zap.Int("player_index", index),
				zap.Error(err))
			return
		}
	}

	// 给服务端留出处理时间，再取权威快照
	time.Sleep(r.settle)

	snapshot, err := r.refetch(ctx)
	if err != nil {
		r.logger.Error("调解后拉取快照失败", zap.Error(err))
		return
	}

	r.adopt(snapshot)
}

// divergedPlayers 返回字段存在分歧的玩家座位号。
// 对比生命值、名称和每一格指挥官伤害。
func divergedPlayers(local, remote PlayerList) []int {
	var diverged []int

	n := len(local)
	if len(remote) < n {
		n = len(remote)
	}

	for i := 0; i < n; i++ {
		if !playerEqual(local[i], remote[i]) {
			diverged = append(diverged, i)
		}
	}

	return diverged
}

// playerEqual 字段级比较单个玩家
func playerEqual(a, b Player) bool {
	if a.Life != b.Life || a.Name != b.Name {
		return false
	}
	if len(a.CommanderDamage) != len(b.CommanderDamage) {
		return false
	}
	for i := range a.CommanderDamage {
		if a.CommanderDamage[i] != b.CommanderDamage[i] {
			return false
		}
	}
	return true
}
