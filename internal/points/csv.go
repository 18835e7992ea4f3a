package points

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"geo-cluster/internal/geo"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
)

var ErrMissingColumns = errors.New("csv header must contain LON and LAT")

// LoadStats：读取统计（总行数与丢弃行数）
type LoadStats struct {
	Rows    int
	Dropped int
}

// Raw：未投影的经纬度记录（入库工具复用）
type Raw struct {
	Lon float64
	Lat float64
}

// ReadRaw：解析带表头的分隔文件，返回可解析为数值的 LON/LAT 行
// 约束：列名大小写不敏感；数值解析失败或列数不足的行静默丢弃
func ReadRaw(r io.Reader) ([]Raw, LoadStats, error) {
	var st LoadStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, st, ErrMissingColumns
		}
		return nil, st, err
	}
	lonIdx, latIdx := -1, -1
	for i, h := range header {
		switch strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "LON":
			lonIdx = i
		case "LAT":
			latIdx = i
		}
	}
	if lonIdx < 0 || latIdx < 0 {
		return nil, st, ErrMissingColumns
	}
	var out []Raw
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		st.Rows++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				st.Dropped++
				continue
			}
			return nil, st, err
		}
		if lonIdx >= len(rec) || latIdx >= len(rec) {
			st.Dropped++
			continue
		}
		lon, e1 := strconv.ParseFloat(strings.TrimSpace(rec[lonIdx]), 64)
		lat, e2 := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		if e1 != nil || e2 != nil {
			st.Dropped++
			continue
		}
		out = append(out, Raw{Lon: lon, Lat: lat})
	}
	return out, st, nil
}

// Project：投影失败（返回 ok=false）的记录被剔除，这是既定的数据清洗策略
func Project(raw []Raw, proj geo.Projector) ([]Point, int) {
	out := make([]Point, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		v, ok := proj.Project(r.Lon, r.Lat)
		if !ok {
			dropped++
			continue
		}
		out = append(out, FromR2(v))
	}
	return out, dropped
}

// LoadCSV：读取 + 投影
func LoadCSV(r io.Reader, proj geo.Projector) ([]Point, LoadStats, error) {
	raw, st, err := ReadRaw(r)
	if err != nil {
		return nil, st, err
	}
	pts, dropped := Project(raw, proj)
	st.Dropped += dropped
	metrics.PointsDroppedTotal.Add(float64(st.Dropped))
	logger.L().Info("points_loaded", "rows", st.Rows, "kept", len(pts), "dropped", st.Dropped)
	return pts, st, nil
}

// LoadCSVFile：按路径读取
func LoadCSVFile(path string, proj geo.Projector) ([]Point, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()
	pts, st, err := LoadCSV(f, proj)
	if err != nil {
		return nil, st, fmt.Errorf("load %s: %w", path, err)
	}
	return pts, st, nil
}
