// 包 kcenter：穷举 k-center（在受限点集上枚举全部 k 子集，最小化覆盖半径）
package kcenter

import (
	"geo-cluster/internal/points"

	"gonum.org/v1/gonum/stat/combin"
)

// Each：按“先包含首元素、再排除首元素”的递归顺序逐个产出 [0,n) 的 k 子集下标
// 约束：回调收到的切片会被复用，需要保留时自行拷贝；回调返回 false 提前终止
func Each(n, k int, fn func(idx []int) bool) {
	if k < 0 || k > n {
		return
	}
	buf := make([]int, 0, k)
	var rec func(start, need int) bool
	rec = func(start, need int) bool {
		if need == 0 {
			return fn(buf)
		}
		if n-start < need {
			return true
		}
		buf = append(buf, start)
		if !rec(start+1, need-1) {
			return false
		}
		buf = buf[:len(buf)-1]
		return rec(start+1, need)
	}
	rec(0, k)
}

// Combinations：一次性物化全部 k 子集（仅用于小规模点集与测试）
func Combinations(n, k int) [][]int {
	var out [][]int
	Each(n, k, func(idx []int) bool {
		out = append(out, append([]int(nil), idx...))
		return true
	})
	return out
}

// Count：C(n,k)；越界返回 0
func Count(n, k int) int {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	return combin.Binomial(n, k)
}

// Pick：按下标取出中心
func Pick(pts []points.Point, idx []int) []points.Center {
	out := make([]points.Center, len(idx))
	for i, j := range idx {
		out[i] = points.CenterOf(pts[j])
	}
	return out
}

// Sequence：与 Each 同序的惰性游标，可从 0 重新开始
// 背景：逐步演示时每次只消费一个组合，不必物化全部 C(n,k) 个子集
type Sequence struct {
	n, k  int
	total int
	index int
	cur   []int
}

func NewSequence(n, k int) *Sequence {
	return &Sequence{n: n, k: k, total: Count(n, k)}
}

// Len：组合总数
func (s *Sequence) Len() int { return s.total }

// Index：已消费的组合数（下一个组合的序号）
func (s *Sequence) Index() int { return s.index }

func (s *Sequence) Reset() {
	s.index = 0
	s.cur = nil
}

// Exhaust：直接跳到末尾（一次性搜索之后使用）
func (s *Sequence) Exhaust() { s.index = s.total }

// Next：返回下一个组合的拷贝；耗尽时返回 false
func (s *Sequence) Next() ([]int, bool) {
	if s.index >= s.total {
		return nil, false
	}
	if s.cur == nil {
		s.cur = make([]int, s.k)
		for i := range s.cur {
			s.cur[i] = i
		}
	} else {
		s.advance()
	}
	s.index++
	return append([]int(nil), s.cur...), true
}

// advance：字典序后继，与包含优先的递归顺序一致
func (s *Sequence) advance() {
	n, k := s.n, s.k
	for j := k - 1; j >= 0; j-- {
		if s.cur[j] == n-k+j {
			continue
		}
		s.cur[j]++
		for l := j + 1; l < k; l++ {
			s.cur[l] = s.cur[j] + l - j
		}
		return
	}
}
