// 包 playback：单个演示引擎的播放控制（Idle/Running 两态 + 固定间隔定时步进）
//
// 背景：页面上的 Play/Pause/Next/Reset 四个按钮共享同一个引擎；
// 手动操作与定时 tick 可能同时到达，由控制器互斥锁串行化，保证每一步原子执行。
// 约束：停止时代号（generation）递增，已触发但尚未执行的 tick 会被丢弃。
package playback

import (
	"errors"
	"sync"
	"time"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
)

// ErrClosed：控制器已关闭（会话过期或被删除）
var ErrClosed = errors.New("playback: controller closed")

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Engine：被控制的引擎
// Advance 执行一步；stop=true 表示序列已耗尽，自动播放应当停止
type Engine interface {
	Advance() (stop bool, err error)
	Reset(k int) error
}

// Event：每次操作完成后的通知
type Event struct {
	Op    string
	State State
	Err   error
}

type Option func(*Controller)

// WithOnChange：操作完成后回调；回调在控制器锁内执行，不得再调用控制器方法
func WithOnChange(fn func(Event)) Option { return func(c *Controller) { c.onChange = fn } }

// WithName：用于日志与指标标签
func WithName(name string) Option { return func(c *Controller) { c.name = name } }

type Controller struct {
	mu       sync.Mutex
	name     string
	eng      Engine
	interval time.Duration
	onChange func(Event)

	state  State
	gen    uint64
	stop   chan struct{}
	closed bool
}

func New(eng Engine, interval time.Duration, opts ...Option) *Controller {
	if interval <= 0 {
		interval = time.Second
	}
	c := &Controller{eng: eng, interval: interval, name: "engine"}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play：仅在 Idle 时启动定时器；已在运行或已关闭返回 false
func (c *Controller) Play() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == Running {
		return false
	}
	c.state = Running
	c.gen++
	c.stop = make(chan struct{})
	go c.loop(c.gen, c.stop)
	logger.L().Debug("playback_play", "engine", c.name, "interval_ms", c.interval.Milliseconds())
	c.emit("play", nil)
	return true
}

// Pause：停止定时器并回到 Idle；返回调用前是否在运行
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.stopLocked()
	c.emit("pause", nil)
	return was
}

// Step：手动单步，先停止自动播放
func (c *Controller) Step() error {
	return c.Run("step", func() error {
		_, err := c.eng.Advance()
		return err
	})
}

// Reset：任意状态下停止播放并重新初始化引擎
func (c *Controller) Reset(k int) error {
	return c.Run("reset", func() error { return c.eng.Reset(k) })
}

// Run：停止自动播放后在锁内执行任意操作并发出通知（一次性求解等）
func (c *Controller) Run(op string, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopLocked()
	err := fn()
	c.emit(op, err)
	return err
}

// Do：在控制器锁内读取引擎状态（渲染快照），回调同时拿到当前播放状态
func (c *Controller) Do(fn func(st State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

// Close：会话过期时调用，停止后台 tick；之后 Play 不再启动，Run 返回 ErrClosed
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
}

func (c *Controller) stopLocked() bool {
	if c.state != Running {
		return false
	}
	close(c.stop)
	c.stop = nil
	c.gen++
	c.state = Idle
	return true
}

func (c *Controller) loop(gen uint64, stop <-chan struct{}) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick：代号不一致说明期间发生过停止，直接丢弃
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen || c.state != Running {
		return false
	}
	metrics.PlaybackTicksTotal.WithLabelValues(c.name).Inc()
	done, err := c.eng.Advance()
	if done || err != nil {
		c.stopLocked()
		if err != nil {
			logger.L().Warn("playback_tick_failed", "engine", c.name, "err", err)
		} else {
			logger.L().Debug("playback_exhausted", "engine", c.name)
		}
	}
	c.emit("tick", err)
	return c.state == Running
}

func (c *Controller) emit(op string, err error) {
	if c.onChange != nil {
		c.onChange(Event{Op: op, State: c.state, Err: err})
	}
}
