// 包 store：Postgres 点集来源（_geo_points 表）的读写
package store

import (
	"context"
	"database/sql"
	"fmt"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/points"
)

// BatchSize：每个事务提交的行数，降低锁持有与 WAL 压力
const BatchSize = 5000

type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// LoadRaw：按插入顺序读取经纬度；source 为空时读取全部
func (s *Store) LoadRaw(ctx context.Context, source string) ([]points.Raw, error) {
	q := "SELECT lon, lat FROM _geo_points ORDER BY id"
	args := []any{}
	if source != "" {
		q = "SELECT lon, lat FROM _geo_points WHERE source=$1 ORDER BY id"
		args = append(args, source)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []points.Raw
	for rows.Next() {
		var r points.Raw
		if err := rows.Scan(&r.Lon, &r.Lat); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_points_loaded", "rows", len(out), "source", source)
	return out, nil
}

// InsertRaw：分批事务写入；replace=true 时先删除同一 source 的旧数据（与首批同事务）
// 异常：任一批失败即返回，已提交的批次保留
func (s *Store) InsertRaw(ctx context.Context, source string, raws []points.Raw, replace bool) (int, error) {
	written := 0
	first := true
	for start := 0; start < len(raws) || first; start += BatchSize {
		end := start + BatchSize
		if end > len(raws) {
			end = len(raws)
		}
		n, err := s.insertBatch(ctx, source, raws[start:end], replace && first)
		if err != nil {
			return written, fmt.Errorf("insert batch at row %d: %w", start, err)
		}
		written += n
		first = false
		logger.L().Debug("db_points_batch_commit", "rows", written)
	}
	return written, nil
}

func (s *Store) insertBatch(ctx context.Context, source string, batch []points.Raw, truncate bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if truncate {
		if _, err := tx.ExecContext(ctx, "DELETE FROM _geo_points WHERE source=$1", source); err != nil {
			return 0, err
		}
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO _geo_points(lon, lat, source) VALUES($1, $2, $3)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.Lon, r.Lat, source); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}
