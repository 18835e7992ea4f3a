// 包 render：把点集、中心与覆盖对转换为可绘制的形状列表，并输出 SVG
//
// 文档注释：Build 纯函数，只描述“画什么”；WriteSVG 负责“怎么画”
// 约束：每一帧都是完整替换，不与上一帧叠加
package render

import (
	"fmt"
	"io"
	"math"

	"geo-cluster/internal/points"

	svg "github.com/ajstarks/svgo"
)

const (
	PointRadius  = 3
	CenterRadius = 8
	WorstRadius  = 7
)

// Category10：与 d3.schemeCategory10 相同的调色板，超过 10 个簇时按下标取模复用
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// UnassignedColor：尚未分配簇的点
const UnassignedColor = "#c7c7c7"

type Kind string

const (
	KindPoint  Kind = "point"
	KindCenter Kind = "center"
	KindCover  Kind = "cover"
	KindWorst  Kind = "worst"
)

// Shape：一个图元；Line 类图元使用 (X,Y)->(X2,Y2)，圆类图元使用 (X,Y,R)
type Shape struct {
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	R      float64 `json:"r,omitempty"`
	Fill   string  `json:"fill,omitempty"`
	Stroke string  `json:"stroke,omitempty"`
}

type Frame struct {
	Shapes []Shape `json:"shapes"`
}

// Color：按簇编号取色；负数视为未分配
func Color(cluster int) string {
	if cluster < 0 {
		return UnassignedColor
	}
	return Category10[cluster%len(Category10)]
}

// Build：点 -> 中心 -> 覆盖线 -> 最远点描边，按绘制顺序排列
func Build(pts []points.Point, centers []points.Center, cover *points.CoverPair) Frame {
	shapes := make([]Shape, 0, len(pts)+len(centers)+2)
	for _, p := range pts {
		shapes = append(shapes, Shape{Kind: KindPoint, X: p.X, Y: p.Y, R: PointRadius, Fill: Color(p.Cluster)})
	}
	for i, c := range centers {
		shapes = append(shapes, Shape{Kind: KindCenter, X: c.X, Y: c.Y, R: CenterRadius, Fill: Color(i), Stroke: "#222"})
	}
	if cover != nil {
		shapes = append(shapes,
			Shape{Kind: KindCover, X: cover.Point.X, Y: cover.Point.Y, X2: cover.Center.X, Y2: cover.Center.Y, Stroke: "#d62728"},
			Shape{Kind: KindWorst, X: cover.Point.X, Y: cover.Point.Y, R: WorstRadius, Stroke: "#d62728"},
		)
	}
	return Frame{Shapes: shapes}
}

// Count：按类型统计图元数量
func (f Frame) Count(k Kind) int {
	n := 0
	for _, s := range f.Shapes {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func px(v float64) int { return int(math.Round(v)) }

// WriteSVG：输出完整的独立 SVG 文档（svgo 使用整数像素坐标）
func WriteSVG(w io.Writer, f Frame, width, height int) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#fff")
	for _, s := range f.Shapes {
		switch s.Kind {
		case KindPoint:
			canvas.Circle(px(s.X), px(s.Y), px(s.R), `class="point" fill="`+s.Fill+`"`)
		case KindCenter:
			canvas.Circle(px(s.X), px(s.Y), px(s.R), `class="center" fill="`+s.Fill+`" stroke="`+s.Stroke+`" stroke-width="2"`)
		case KindCover:
			canvas.Line(px(s.X), px(s.Y), px(s.X2), px(s.Y2), `class="cover" stroke="`+s.Stroke+`" stroke-width="2" stroke-dasharray="6,4"`)
		case KindWorst:
			canvas.Circle(px(s.X), px(s.Y), px(s.R), `class="worst" fill="none" stroke="`+s.Stroke+`" stroke-width="2"`)
		}
	}
	canvas.End()
}

// FormatRadius：有限值保留两位小数，+Inf 显示为 ∞
func FormatRadius(v float64) string {
	if math.IsInf(v, 1) || math.IsNaN(v) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}

// NaiveStatus：穷举演示的状态栏文本
func NaiveStatus(n, k, step, total int, radius, best float64) string {
	return fmt.Sprintf("points: %d | k: %d | step %d / %d | radius: %s | best: %s",
		n, k, step, total, FormatRadius(radius), FormatRadius(best))
}

// LloydStatus：k-means 演示的状态栏文本
func LloydStatus(n, k, iteration, changed int, empty []int) string {
	s := fmt.Sprintf("points: %d | k: %d | iteration %d | reassigned: %d", n, k, iteration, changed)
	if len(empty) > 0 {
		s += fmt.Sprintf(" | empty clusters: %v", empty)
	}
	return s
}
