// 包 lloyd：Lloyd 迭代质心 k-means；每次 Step 执行一次“最近中心分配 + 质心重算”
//
// 初始化为随机抽样：默认随机源以当前时间为种子，结果不可复现；
// 需要复现时通过 WithRand 注入固定种子的随机源。
package lloyd

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/points"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrInvalidK       = errors.New("lloyd: invalid k")
	ErrNotInitialized = errors.New("lloyd: engine not initialized")
)

// StepReport：单次迭代的结果摘要
type StepReport struct {
	Iteration int     `json:"iteration"`
	Changed   int     `json:"changed"`
	MaxShift  float64 `json:"max_shift"`
	// 本轮没有分到任何点的中心下标，这些中心保持原位置
	Empty []int `json:"empty,omitempty"`
}

type Option func(*Engine)

// WithRand：注入初始中心抽样使用的随机源
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// Engine：独占一个点集及其当前中心
// 约束：非并发安全，由播放控制器串行调用
type Engine struct {
	store     *points.Store
	rng       *rand.Rand
	centers   []points.Center
	iteration int
}

// New：Step 之前必须先 Init
func New(store *points.Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Init：无放回均匀抽取 k 个点作为初始中心，清空旧归属并执行一次分配
// 异常：k 不在 [1, 点数] 范围内返回 ErrInvalidK，状态保持不变
func (e *Engine) Init(k int) error {
	n := e.store.Len()
	if k <= 0 || k > n {
		return fmt.Errorf("%w: k=%d, points=%d", ErrInvalidK, k, n)
	}
	pts := e.store.Points()
	perm := e.rng.Perm(n)
	centers := make([]points.Center, k)
	for i := 0; i < k; i++ {
		centers[i] = points.CenterOf(pts[perm[i]])
	}
	e.centers = centers
	e.iteration = 0
	e.store.ClearAssignments()
	e.assign()
	logger.L().Debug("lloyd_init", "k", k, "points", n)
	return nil
}

// Step：分配阶段 + 更新阶段；不判断收敛，迭代次数由调用方决定
func (e *Engine) Step() (StepReport, error) {
	if len(e.centers) == 0 {
		return StepReport{}, ErrNotInitialized
	}
	changed := e.assign()
	empty, shift := e.update()
	e.iteration++
	metrics.LloydStepsTotal.Inc()
	if len(empty) > 0 {
		metrics.LloydEmptyClustersTotal.Add(float64(len(empty)))
		logger.L().Debug("lloyd_empty_cluster", "centers", empty, "iteration", e.iteration)
	}
	return StepReport{Iteration: e.iteration, Changed: changed, MaxShift: shift, Empty: empty}, nil
}

// assign：返回归属发生变化的点数
func (e *Engine) assign() int {
	pts := e.store.Points()
	changed := 0
	for i := range pts {
		best := points.Nearest(pts[i], e.centers)
		if pts[i].Cluster != best {
			pts[i].Cluster = best
			changed++
		}
	}
	return changed
}

// update：中心移动到成员均值；空簇保持原位置，避免 NaN 污染后续距离计算
func (e *Engine) update() ([]int, float64) {
	k := len(e.centers)
	xs := make([][]float64, k)
	ys := make([][]float64, k)
	for _, p := range e.store.Points() {
		if p.Cluster < 0 || p.Cluster >= k {
			continue
		}
		xs[p.Cluster] = append(xs[p.Cluster], p.X)
		ys[p.Cluster] = append(ys[p.Cluster], p.Y)
	}
	var empty []int
	maxShift := 0.0
	for i := range e.centers {
		if len(xs[i]) == 0 {
			empty = append(empty, i)
			continue
		}
		next := points.Center{X: stat.Mean(xs[i], nil), Y: stat.Mean(ys[i], nil)}
		if d := next.Vec().Sub(e.centers[i].Vec()).Norm(); d > maxShift {
			maxShift = d
		}
		e.centers[i] = next
	}
	return empty, maxShift
}

func (e *Engine) Centers() []points.Center {
	out := make([]points.Center, len(e.centers))
	copy(out, e.centers)
	return out
}

func (e *Engine) K() int { return len(e.centers) }

// Iteration：自上次 Init 以来的 Step 次数
func (e *Engine) Iteration() int { return e.iteration }

func (e *Engine) Points() []points.Point { return e.store.Snapshot() }
