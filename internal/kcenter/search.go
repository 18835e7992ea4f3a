package kcenter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/points"

	"gonum.org/v1/gonum/stat/combin"
)

// DefaultMaxCombinations：单次穷举允许的最大组合数
const DefaultMaxCombinations = 5_000_000

var (
	ErrInvalidK       = errors.New("kcenter: invalid k")
	ErrSearchTooLarge = errors.New("kcenter: search space too large")
	ErrNotInitialized = errors.New("kcenter: step sequence not initialized")
	ErrExhausted      = errors.New("kcenter: step sequence exhausted")
)

// Coverage：覆盖半径及取得该半径的（点，中心）下标
type Coverage struct {
	Radius float64 `json:"radius"`
	Point  int     `json:"point"`
	Center int     `json:"center"`
}

// CoveringRadius：每个点到最近中心（严格小于，平局取先出现者）的距离的最大值
// 约束：无中心时半径为 +Inf；无点时半径为 0；两种情况下标均为 -1
func CoveringRadius(pts []points.Point, centers []points.Center) Coverage {
	if len(centers) == 0 {
		return Coverage{Radius: math.Inf(1), Point: -1, Center: -1}
	}
	cov := Coverage{Radius: 0, Point: -1, Center: -1}
	for i, p := range pts {
		j := points.Nearest(p, centers)
		d := points.Dist(p, centers[j])
		if cov.Point < 0 || d > cov.Radius {
			cov = Coverage{Radius: d, Point: i, Center: j}
		}
	}
	return cov
}

// Pair：把下标还原为坐标对，供渲染高亮
func (c Coverage) Pair(pts []points.Point, centers []points.Center) *points.CoverPair {
	if c.Point < 0 || c.Center < 0 || c.Point >= len(pts) || c.Center >= len(centers) {
		return nil
	}
	return &points.CoverPair{Point: pts[c.Point], Center: centers[c.Center]}
}

// Assign：把每个点写回最近中心的下标
func Assign(pts []points.Point, centers []points.Center) {
	for i := range pts {
		pts[i].Cluster = points.Nearest(pts[i], centers)
	}
}

// Validate：k 必须在 [1,n]，且 C(n,k) 不超过 limit（limit<=0 表示不限，但仍不得超出 int 范围）
func Validate(n, k, limit int) error {
	if k <= 0 || k > n {
		return fmt.Errorf("%w: k=%d, points=%d", ErrInvalidK, k, n)
	}
	c := combin.GeneralizedBinomial(float64(n), float64(k))
	if c >= math.MaxInt {
		return fmt.Errorf("%w: C(%d,%d) overflows int", ErrSearchTooLarge, n, k)
	}
	if limit > 0 && c > float64(limit) {
		return fmt.Errorf("%w: C(%d,%d) exceeds %d", ErrSearchTooLarge, n, k, limit)
	}
	return nil
}

// Result：一次性穷举的结果
type Result struct {
	Indices   []int           `json:"indices"`
	Centers   []points.Center `json:"centers"`
	Radius    float64         `json:"radius"`
	Cover     Coverage        `json:"cover"`
	Evaluated int             `json:"evaluated"`
}

type searchConfig struct {
	limit    int
	observer func(i int, radius, best float64)
}

type SearchOption func(*searchConfig)

// WithMaxCombinations：覆盖默认组合数上限；<=0 表示不限
func WithMaxCombinations(n int) SearchOption {
	return func(c *searchConfig) { c.limit = n }
}

// WithObserver：每评估一个组合回调一次（序号从 1 起，当前半径，截至目前最优半径）
func WithObserver(fn func(i int, radius, best float64)) SearchOption {
	return func(c *searchConfig) { c.observer = fn }
}

// BruteForce：评估全部 k 子集，保留覆盖半径最小者（严格改进才替换，平局保留先找到的），
// 并按获胜中心原地写回每个点的簇编号。
// 复杂度 O(C(n,k)·n·k)，仅适用于受限的小点集；超过上限返回 ErrSearchTooLarge。
func BruteForce(ctx context.Context, pts []points.Point, k int, opts ...SearchOption) (Result, error) {
	cfg := searchConfig{limit: DefaultMaxCombinations}
	for _, o := range opts {
		o(&cfg)
	}
	if err := Validate(len(pts), k, cfg.limit); err != nil {
		return Result{}, err
	}
	t0 := time.Now()
	best := Result{Radius: math.Inf(1), Cover: Coverage{Point: -1, Center: -1}}
	centers := make([]points.Center, k)
	var ctxErr error
	Each(len(pts), k, func(idx []int) bool {
		if best.Evaluated%4096 == 0 {
			if ctxErr = ctx.Err(); ctxErr != nil {
				return false
			}
		}
		for i, j := range idx {
			centers[i] = points.CenterOf(pts[j])
		}
		cov := CoveringRadius(pts, centers)
		best.Evaluated++
		if cov.Radius < best.Radius {
			best.Radius = cov.Radius
			best.Cover = cov
			best.Indices = append(best.Indices[:0], idx...)
		}
		if cfg.observer != nil {
			cfg.observer(best.Evaluated, cov.Radius, best.Radius)
		}
		return true
	})
	if ctxErr != nil {
		return Result{}, ctxErr
	}
	best.Centers = Pick(pts, best.Indices)
	Assign(pts, best.Centers)
	ms := float64(time.Since(t0).Milliseconds())
	metrics.KCenterSearchDurationMs.Observe(ms)
	metrics.KCenterCombinationsTotal.Add(float64(best.Evaluated))
	logger.L().Debug("kcenter_search_done", "n", len(pts), "k", k, "evaluated", best.Evaluated, "radius", best.Radius, "duration_ms", ms)
	return best, nil
}
