// 包 ingest：离线导入通道，把 LON/LAT 分隔文件写入 Postgres 点集表
package ingest

import (
	"context"
	"io"
	"os"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/points"
	"geo-cluster/internal/store"
)

type Stats struct {
	Rows    int
	Dropped int
	Written int
}

// ImportCSV：解析并分批写库；无法解析的行直接丢弃并计数
// 异常：缺少 LON/LAT 列或数据库错误直接返回
func ImportCSV(ctx context.Context, st *store.Store, r io.Reader, source string, replace bool) (Stats, error) {
	logger.L().Info("ingest_start", "source", source, "replace", replace)
	raws, ls, err := points.ReadRaw(r)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Rows: ls.Rows, Dropped: ls.Dropped}
	n, err := st.InsertRaw(ctx, source, raws, replace)
	stats.Written = n
	if err != nil {
		logger.L().Error("ingest_error", "written", n, "err", err)
		return stats, err
	}
	logger.L().Info("ingest_done", "rows", stats.Rows, "dropped", stats.Dropped, "written", stats.Written)
	return stats, nil
}

func ImportCSVFile(ctx context.Context, st *store.Store, path, source string, replace bool) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return ImportCSV(ctx, st, f, source, replace)
}
