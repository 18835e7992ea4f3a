package kcenter

import (
	"context"
	"encoding/json"
	"math"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/points"
)

// ResultCache：一次性穷举结果的外部缓存（键为点集指纹 + k）
// 约束：实现需容忍后端不可用，Get 未命中与出错同样返回 false
type ResultCache interface {
	Get(ctx context.Context, fingerprint uint64, k int) (Result, bool)
	Put(ctx context.Context, fingerprint uint64, k int, r Result)
}

// StepReport：逐步演示时的状态输出
// Radius/Best 为 +Inf 表示“尚未知”，序列化为 null
type StepReport struct {
	Step      int
	Total     int
	Radius    float64
	Best      float64
	Done      bool
	Exhausted bool
}

func (r StepReport) MarshalJSON() ([]byte, error) {
	type out struct {
		Step      int      `json:"step"`
		Total     int      `json:"total"`
		Radius    *float64 `json:"radius"`
		Best      *float64 `json:"best"`
		Done      bool     `json:"done"`
		Exhausted bool     `json:"exhausted"`
	}
	return json.Marshal(out{Step: r.Step, Total: r.Total, Radius: finite(r.Radius), Best: finite(r.Best), Done: r.Done, Exhausted: r.Exhausted})
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

type Option func(*Engine)

// WithLimit：组合数上限，见 Validate
func WithLimit(n int) Option { return func(e *Engine) { e.limit = n } }

// WithCache：一次性穷举前后读写外部缓存
func WithCache(c ResultCache) Option { return func(e *Engine) { e.cache = c } }

// Engine：逐步 / 一次性穷举的状态持有者
// 约束：非并发安全，由播放控制器串行调用；当前组合、最优半径与游标均为实例状态
type Engine struct {
	store *points.Store
	limit int
	cache ResultCache

	k       int
	seq     *Sequence
	current []points.Center
	best    []points.Center
	cover   *points.CoverPair
	last    StepReport
}

func NewEngine(store *points.Store, opts ...Option) *Engine {
	e := &Engine{store: store, limit: DefaultMaxCombinations}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StepInit：游标归零，按 k 重建组合序列，最优半径置为 +Inf，中心集为空
// 约束：幂等；k 非法时返回配置错误且不修改已有状态
func (e *Engine) StepInit(k int) error {
	if err := Validate(e.store.Len(), k, e.limit); err != nil {
		return err
	}
	e.k = k
	e.seq = NewSequence(e.store.Len(), k)
	e.current = nil
	e.best = nil
	e.cover = nil
	e.store.ClearAssignments()
	e.last = StepReport{Step: 0, Total: e.seq.Len(), Radius: math.Inf(1), Best: math.Inf(1)}
	logger.L().Debug("kcenter_step_init", "k", k, "total", e.seq.Len())
	return nil
}

// StepAdvance：恰好消费一个组合；按当前组合（而非最优组合）写回簇编号并记录最远覆盖对。
// 异常：未初始化返回 ErrNotInitialized；序列耗尽返回最后一次报告（Exhausted=true）与 ErrExhausted，状态不变
func (e *Engine) StepAdvance() (StepReport, error) {
	if e.seq == nil {
		return StepReport{}, ErrNotInitialized
	}
	idx, ok := e.seq.Next()
	if !ok {
		rep := e.last
		rep.Done = true
		rep.Exhausted = true
		return rep, ErrExhausted
	}
	pts := e.store.Points()
	centers := Pick(pts, idx)
	cov := CoveringRadius(pts, centers)
	best := e.last.Best
	if cov.Radius < best {
		best = cov.Radius
		e.best = centers
	}
	Assign(pts, centers)
	e.current = centers
	e.cover = cov.Pair(pts, centers)
	e.last = StepReport{
		Step:   e.seq.Index(),
		Total:  e.seq.Len(),
		Radius: cov.Radius,
		Best:   best,
		Done:   e.seq.Index() >= e.seq.Len(),
	}
	metrics.KCenterStepsTotal.Inc()
	return e.last, nil
}

// Solve：一次性穷举，并把获胜组合装入当前状态；序列随之视为耗尽
func (e *Engine) Solve(ctx context.Context, k int) (Result, error) {
	n := e.store.Len()
	if err := Validate(n, k, e.limit); err != nil {
		return Result{}, err
	}
	pts := e.store.Points()
	fp := points.Fingerprint(pts)
	var res Result
	hit := false
	if e.cache != nil {
		if r, ok := e.cache.Get(ctx, fp, k); ok && len(r.Indices) == k {
			res, hit = r, true
			res.Centers = Pick(pts, res.Indices)
			Assign(pts, res.Centers)
		}
	}
	if !hit {
		r, err := BruteForce(ctx, pts, k, WithMaxCombinations(e.limit))
		if err != nil {
			return Result{}, err
		}
		res = r
		if e.cache != nil {
			e.cache.Put(ctx, fp, k, res)
		}
	}
	e.k = k
	e.seq = NewSequence(n, k)
	e.seq.Exhaust()
	e.current = res.Centers
	e.best = res.Centers
	e.cover = res.Cover.Pair(pts, res.Centers)
	e.last = StepReport{Step: e.seq.Len(), Total: e.seq.Len(), Radius: res.Radius, Best: res.Radius, Done: true}
	logger.L().Debug("kcenter_solve", "k", k, "radius", res.Radius, "cached", hit)
	return res, nil
}

// Centers：当前组合的中心（逐步模式下不一定是最优组合）
func (e *Engine) Centers() []points.Center { return append([]points.Center(nil), e.current...) }

// BestCenters：截至目前覆盖半径最小的组合
func (e *Engine) BestCenters() []points.Center { return append([]points.Center(nil), e.best...) }

// Cover：当前组合下的最远覆盖对；未开始时为 nil
func (e *Engine) Cover() *points.CoverPair {
	if e.cover == nil {
		return nil
	}
	c := *e.cover
	return &c
}

func (e *Engine) Report() StepReport { return e.last }

func (e *Engine) K() int { return e.k }

func (e *Engine) N() int { return e.store.Len() }

func (e *Engine) Points() []points.Point { return e.store.Snapshot() }
