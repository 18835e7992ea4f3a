// 包 session：一个浏览器页面对应一个会话，会话独占两套引擎与各自的播放控制器
//
// 背景：两个演示（Lloyd / 穷举 k-center）互不共享状态；同一会话内的所有操作
// 与定时 tick 都经过对应控制器的锁，因此渲染快照总是某一步完成后的完整状态。
package session

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/lloyd"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/playback"
	"geo-cluster/internal/points"
	"geo-cluster/internal/render"
)

const (
	EngineLloyd = "lloyd"
	EngineNaive = "naive"
)

// Options：新会话的构造参数（来自配置）
type Options struct {
	Points          []points.Point
	LloydK          int
	NaiveK          int
	SampleSize      int
	SampleSeed      int64
	MaxCombinations int
	Interval        time.Duration
	Width, Height   int
	Cache           kcenter.ResultCache
	// Seed 非 0 时 Lloyd 初始抽样可复现
	Seed int64
}

// View：推送给前端的一帧
type View struct {
	Engine string         `json:"engine"`
	Op     string         `json:"op,omitempty"`
	State  playback.State `json:"state"`
	SVG    string         `json:"svg"`
	Status string         `json:"status"`
	Report any            `json:"report"`
	Error  string         `json:"error,omitempty"`
}

type Session struct {
	ID string

	opts Options

	lloyd       *lloyd.Engine
	lloydReport lloyd.StepReport
	lloydCtl    *playback.Controller

	naive    *kcenter.Engine
	naiveCtl *playback.Controller

	subMu sync.Mutex
	subs  map[chan View]struct{}
}

func New(id string, opts Options) *Session {
	s := &Session{ID: id, opts: opts, subs: map[chan View]struct{}{}}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.lloyd = lloyd.New(points.NewStore(opts.Points), lloyd.WithRand(rand.New(rand.NewSource(seed))))
	sample := points.Sample(opts.Points, opts.SampleSize, opts.SampleSeed)
	kopts := []kcenter.Option{kcenter.WithLimit(opts.MaxCombinations)}
	if opts.Cache != nil {
		kopts = append(kopts, kcenter.WithCache(opts.Cache))
	}
	s.naive = kcenter.NewEngine(points.NewStore(sample), kopts...)

	s.lloydCtl = playback.New(&lloydAdapter{s}, opts.Interval,
		playback.WithName(EngineLloyd),
		playback.WithOnChange(func(ev playback.Event) { s.publish(s.lloydViewLocked(ev.Op, ev.State, ev.Err)) }))
	s.naiveCtl = playback.New(&naiveAdapter{s}, opts.Interval,
		playback.WithName(EngineNaive),
		playback.WithOnChange(func(ev playback.Event) { s.publish(s.naiveViewLocked(ev.Op, ev.State, ev.Err)) }))

	// 初始 k 超过点数时截断；空点集保持未初始化，后续操作返回配置错误
	if k := clampK(opts.LloydK, len(opts.Points)); k > 0 {
		if err := s.lloyd.Init(k); err != nil {
			logger.L().Warn("session_lloyd_init_failed", "sid", id, "k", k, "err", err)
		}
	}
	if k := clampK(opts.NaiveK, len(sample)); k > 0 {
		if err := s.naive.StepInit(k); err != nil {
			logger.L().Warn("session_naive_init_failed", "sid", id, "k", k, "err", err)
		}
	}
	return s
}

func clampK(k, n int) int {
	if k > n {
		k = n
	}
	if k < 1 {
		return 0
	}
	return k
}

// ---- Lloyd ----

type lloydAdapter struct{ s *Session }

func (a *lloydAdapter) Advance() (bool, error) {
	rep, err := a.s.lloyd.Step()
	if err != nil {
		return false, err
	}
	a.s.lloydReport = rep
	return false, nil
}

func (a *lloydAdapter) Reset(k int) error {
	if err := a.s.lloyd.Init(k); err != nil {
		return err
	}
	a.s.lloydReport = lloyd.StepReport{}
	return nil
}

func (s *Session) LloydReset(k int) (View, error) {
	err := s.lloydCtl.Reset(k)
	return s.LloydView(), err
}

func (s *Session) LloydStep() (View, error) {
	err := s.lloydCtl.Step()
	return s.LloydView(), err
}

func (s *Session) LloydPlay() (View, bool) {
	ok := s.lloydCtl.Play()
	return s.LloydView(), ok
}

func (s *Session) LloydPause() View {
	s.lloydCtl.Pause()
	return s.LloydView()
}

func (s *Session) LloydView() View {
	var v View
	s.lloydCtl.Do(func(st playback.State) { v = s.lloydViewLocked("", st, nil) })
	return v
}

func (s *Session) lloydViewLocked(op string, st playback.State, err error) View {
	pts := s.lloyd.Points()
	centers := s.lloyd.Centers()
	var buf bytes.Buffer
	render.WriteSVG(&buf, render.Build(pts, centers, nil), s.opts.Width, s.opts.Height)
	rep := s.lloydReport
	v := View{
		Engine: EngineLloyd,
		Op:     op,
		State:  st,
		SVG:    buf.String(),
		Status: render.LloydStatus(len(pts), len(centers), rep.Iteration, rep.Changed, rep.Empty),
		Report: rep,
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// ---- naive k-center ----

type naiveAdapter struct{ s *Session }

func (a *naiveAdapter) Advance() (bool, error) {
	rep, err := a.s.naive.StepAdvance()
	if errors.Is(err, kcenter.ErrExhausted) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return rep.Done, nil
}

func (a *naiveAdapter) Reset(k int) error { return a.s.naive.StepInit(k) }

func (s *Session) NaiveInit(k int) (View, error) {
	err := s.naiveCtl.Reset(k)
	return s.NaiveView(), err
}

func (s *Session) NaiveStep() (View, error) {
	err := s.naiveCtl.Step()
	return s.NaiveView(), err
}

// NaiveSolve：一次性穷举；与单步共用同一把锁
func (s *Session) NaiveSolve(ctx context.Context, k int) (View, error) {
	err := s.naiveCtl.Run("solve", func() error {
		_, err := s.naive.Solve(ctx, k)
		return err
	})
	return s.NaiveView(), err
}

func (s *Session) NaivePlay() (View, bool) {
	ok := s.naiveCtl.Play()
	return s.NaiveView(), ok
}

func (s *Session) NaivePause() View {
	s.naiveCtl.Pause()
	return s.NaiveView()
}

func (s *Session) NaiveView() View {
	var v View
	s.naiveCtl.Do(func(st playback.State) { v = s.naiveViewLocked("", st, nil) })
	return v
}

func (s *Session) naiveViewLocked(op string, st playback.State, err error) View {
	pts := s.naive.Points()
	var buf bytes.Buffer
	render.WriteSVG(&buf, render.Build(pts, s.naive.Centers(), s.naive.Cover()), s.opts.Width, s.opts.Height)
	rep := s.naive.Report()
	v := View{
		Engine: EngineNaive,
		Op:     op,
		State:  st,
		SVG:    buf.String(),
		Status: render.NaiveStatus(len(pts), s.naive.K(), rep.Step, rep.Total, rep.Radius, rep.Best),
		Report: rep,
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// ---- push ----

// Subscribe：订阅两个引擎的帧推送；订阅方缓冲满时丢弃新帧
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
			s.subMu.Unlock()
		})
	}
}

func (s *Session) publish(v View) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- v:
			metrics.FramesPushedTotal.Inc()
		default:
			logger.L().Debug("frame_dropped", "sid", s.ID, "engine", v.Engine)
		}
	}
}

// Close：停止两个控制器并关闭全部订阅
func (s *Session) Close() {
	s.lloydCtl.Close()
	s.naiveCtl.Close()
	s.subMu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()
}
