// 包 points：平面点集与聚类归属的持有者（引擎原地修改 Cluster 字段）
package points

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
)

// Unassigned：首次分配之前的簇编号
const Unassigned = -1

// Point：平面坐标与当前簇编号
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

// Center：质心（Lloyd）或样本中心（k-center）
type Center struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CoverPair：距最近中心最远的点及其中心（用于高亮）
type CoverPair struct {
	Point  Point  `json:"point"`
	Center Center `json:"center"`
}

func FromR2(p r2.Point) Point { return Point{X: p.X, Y: p.Y, Cluster: Unassigned} }

func (p Point) Vec() r2.Point  { return r2.Point{X: p.X, Y: p.Y} }
func (c Center) Vec() r2.Point { return r2.Point{X: c.X, Y: c.Y} }

func (p Point) Assigned() bool { return p.Cluster != Unassigned }

// CenterOf：以点坐标构造中心
func CenterOf(p Point) Center { return Center{X: p.X, Y: p.Y} }

// Dist2：平方欧氏距离
func Dist2(p Point, c Center) float64 {
	d := p.Vec().Sub(c.Vec())
	return d.Dot(d)
}

// Dist：欧氏距离
func Dist(p Point, c Center) float64 { return math.Sqrt(Dist2(p, c)) }

// Nearest：平方距离最小的中心下标；严格小于比较，距离相同取下标最小者；无中心返回 Unassigned
func Nearest(p Point, centers []Center) int {
	best := Unassigned
	bestDist := math.Inf(1)
	for i, c := range centers {
		if d := Dist2(p, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Store：一个引擎独占的工作点集
// 约束：不做并发保护，调用方（播放控制器）负责串行化
type Store struct {
	pts []Point
}

// NewStore：拷贝输入，避免多个引擎共享底层数组
func NewStore(pts []Point) *Store {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return &Store{pts: cp}
}

func (s *Store) Len() int { return len(s.pts) }

// Points：返回内部切片，引擎据此原地写回簇编号
func (s *Store) Points() []Point { return s.pts }

// Snapshot：返回拷贝，供渲染与序列化
func (s *Store) Snapshot() []Point {
	cp := make([]Point, len(s.pts))
	copy(cp, s.pts)
	return cp
}

// ClearAssignments：全部回到未分配状态
func (s *Store) ClearAssignments() {
	for i := range s.pts {
		s.pts[i].Cluster = Unassigned
	}
}

// Sample：按固定种子抽取 n 个点的子集（n 不小于总数时返回全部拷贝）
// 约束：同一输入与种子得到同一子集，保证穷举步数在多次重置之间可比
func Sample(pts []Point, n int, seed int64) []Point {
	if n >= len(pts) || n < 0 {
		out := make([]Point, len(pts))
		copy(out, pts)
		for i := range out {
			out[i].Cluster = Unassigned
		}
		return out
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(pts))
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i] = pts[perm[i]]
		out[i].Cluster = Unassigned
	}
	return out
}

// Fingerprint：点集坐标的 FNV-64a 摘要（结果缓存键的一部分）
func Fingerprint(pts []Point) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	for _, p := range pts {
		binary.BigEndian.PutUint64(buf[:8], math.Float64bits(p.X))
		binary.BigEndian.PutUint64(buf[8:], math.Float64bits(p.Y))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
