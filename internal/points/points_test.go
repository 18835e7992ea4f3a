package points

import (
	"strings"
	"testing"

	"geo-cluster/internal/geo"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProjector：把经纬度原样作为平面坐标，纬度为负视为无法投影
type stubProjector struct{}

func (stubProjector) Project(lon, lat float64) (r2.Point, bool) {
	if lat < 0 {
		return r2.Point{}, false
	}
	return r2.Point{X: lon, Y: lat}, true
}

func TestReadRaw(t *testing.T) {
	in := "NAME,lat,LON\n" +
		"a,40.1,-100.5\n" +
		"b,not-a-number,-90\n" +
		"c,41\n" +
		"d, 42.5 , -80\n"
	raw, st, err := ReadRaw(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 2, st.Dropped)
	assert.Equal(t, []Raw{{Lon: -100.5, Lat: 40.1}, {Lon: -80, Lat: 42.5}}, raw)
}

func TestReadRaw_MissingColumns(t *testing.T) {
	_, _, err := ReadRaw(strings.NewReader("X,Y\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, _, err = ReadRaw(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestLoadCSV_DropsUnprojectable(t *testing.T) {
	in := "LON,LAT\n1,2\n3,-4\n5,6\n"
	pts, st, err := LoadCSV(strings.NewReader(in), stubProjector{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Dropped)
	require.Len(t, pts, 2)
	assert.Equal(t, Point{X: 1, Y: 2, Cluster: Unassigned}, pts[0])
	assert.False(t, pts[1].Assigned())
}

func TestLoadCSV_AlbersDropsForeignRows(t *testing.T) {
	in := "LON,LAT\n-96.6,38.7\n2.35,48.85\n"
	pts, st, err := LoadCSV(strings.NewReader(in), geo.NewAlbersUSA(800, 600, 1000))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Dropped)
	require.Len(t, pts, 1)
	assert.InDelta(t, 400, pts[0].X, 1e-6)
}

func TestStore_CopiesInput(t *testing.T) {
	in := []Point{{X: 1, Y: 1, Cluster: Unassigned}}
	s := NewStore(in)
	s.Points()[0].Cluster = 0
	assert.Equal(t, Unassigned, in[0].Cluster)

	snap := s.Snapshot()
	snap[0].X = 99
	assert.Equal(t, 1.0, s.Points()[0].X)

	s.ClearAssignments()
	assert.Equal(t, Unassigned, s.Points()[0].Cluster)
}

func TestSample(t *testing.T) {
	var pts []Point
	for i := 0; i < 20; i++ {
		pts = append(pts, Point{X: float64(i), Y: 0, Cluster: 3})
	}
	a := Sample(pts, 5, 7)
	b := Sample(pts, 5, 7)
	require.Len(t, a, 5)
	assert.Equal(t, a, b)
	seen := map[float64]bool{}
	for _, p := range a {
		assert.False(t, seen[p.X])
		seen[p.X] = true
		assert.Equal(t, Unassigned, p.Cluster)
	}

	all := Sample(pts, 50, 7)
	assert.Len(t, all, 20)
}

func TestDistances(t *testing.T) {
	p := Point{X: 3, Y: 4}
	c := Center{}
	assert.Equal(t, 25.0, Dist2(p, c))
	assert.Equal(t, 5.0, Dist(p, c))
}

func TestFingerprint(t *testing.T) {
	a := []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	b := []Point{{X: 1, Y: 2, Cluster: 1}, {X: 3, Y: 4}}
	c := []Point{{X: 3, Y: 4}, {X: 1, Y: 2}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestNearest_TieGoesToLowestIndex(t *testing.T) {
	p := Point{X: 5, Y: 0}
	cs := []Center{{X: 0, Y: 0}, {X: 10, Y: 0}}
	assert.Equal(t, 0, Nearest(p, cs))

	cs = []Center{{X: 9, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 0}}
	assert.Equal(t, 0, Nearest(p, cs))
	assert.Equal(t, Unassigned, Nearest(p, nil))
}
