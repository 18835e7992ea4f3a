// 包 geo：经纬度到平面坐标的投影（美国本土 + 阿拉斯加 + 夏威夷 复合等积圆锥投影）
package geo

import (
	"math"

	"github.com/golang/geo/r2"
)

const radians = math.Pi / 180

// Projector：把 WGS84 经纬度映射到画布平面；ok=false 表示该点无法投影（应丢弃）
type Projector interface {
	Project(lon, lat float64) (r2.Point, bool)
}

// conic：Albers 等积圆锥投影的单个分片，带旋转、居中、缩放平移与矩形裁剪
type conic struct {
	n, c, r0 float64
	rotate   float64
	k        float64
	dx, dy   float64
	clip     r2.Rect
}

func newConic(phi0, phi1, rotateDeg, centerLon, centerLat, k, x, y float64, clip r2.Rect) *conic {
	sy0 := math.Sin(phi0 * radians)
	n := (sy0 + math.Sin(phi1*radians)) / 2
	c := 1 + sy0*(2*n-sy0)
	p := &conic{n: n, c: c, r0: math.Sqrt(c) / n, rotate: rotateDeg * radians, k: k, clip: clip}
	// 居中点只经过原始投影，不参与旋转
	cx, cy := p.raw(centerLon*radians, centerLat*radians)
	p.dx = x - k*cx
	p.dy = y + k*cy
	return p
}

func (p *conic) raw(lambda, phi float64) (float64, float64) {
	r := math.Sqrt(p.c-2*p.n*math.Sin(phi)) / p.n
	a := lambda * p.n
	return r * math.Sin(a), p.r0 - r*math.Cos(a)
}

func (p *conic) project(lon, lat float64) (r2.Point, bool) {
	lambda := lon*radians + p.rotate
	if lambda > math.Pi {
		lambda -= 2 * math.Pi
	} else if lambda < -math.Pi {
		lambda += 2 * math.Pi
	}
	x, y := p.raw(lambda, lat*radians)
	pt := r2.Point{X: p.dx + p.k*x, Y: p.dy - p.k*y}
	if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
		return r2.Point{}, false
	}
	return pt, p.clip.ContainsPoint(pt)
}

// AlbersUSA：复合投影，依次尝试本土、阿拉斯加、夏威夷分片，首个落在裁剪框内的结果生效
type AlbersUSA struct {
	parts [3]*conic
}

// NewAlbersUSA：以画布中心为平移点构建复合投影
// 约束：scale 为本土分片缩放，阿拉斯加按 0.35 倍缩放
func NewAlbersUSA(width, height, scale float64) *AlbersUSA {
	x, y, k := width/2, height/2, scale
	const eps = 1e-6
	rect := func(x0, y0, x1, y1 float64) r2.Rect {
		return r2.RectFromPoints(r2.Point{X: x0, Y: y0}, r2.Point{X: x1, Y: y1})
	}
	lower48 := newConic(29.5, 45.5, 96, -0.6, 38.7, k, x, y,
		rect(x-0.455*k, y-0.238*k, x+0.455*k, y+0.238*k))
	alaska := newConic(55, 65, 154, -2, 58.5, 0.35*k, x-0.307*k, y+0.201*k,
		rect(x-0.425*k+eps, y+0.120*k+eps, x-0.214*k-eps, y+0.234*k-eps))
	hawaii := newConic(8, 18, 157, -3, 19.9, k, x-0.205*k, y+0.212*k,
		rect(x-0.214*k+eps, y+0.166*k+eps, x-0.115*k-eps, y+0.234*k-eps))
	return &AlbersUSA{parts: [3]*conic{lower48, alaska, hawaii}}
}

// Project：非有限值或超出经纬度范围的输入直接判定失败
func (a *AlbersUSA) Project(lon, lat float64) (r2.Point, bool) {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return r2.Point{}, false
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return r2.Point{}, false
	}
	for _, p := range a.parts {
		if pt, ok := p.project(lon, lat); ok {
			return pt, true
		}
	}
	return r2.Point{}, false
}
