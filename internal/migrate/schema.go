package migrate

import (
	"context"
	"database/sql"

	"geo-cluster/internal/logger"
)

// Statements：点集来源所需的最小表结构
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS _geo_points (
		id BIGSERIAL PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_geo_points_source ON _geo_points(source, id)`,
}

// 背景：首次运行自动建表，保障导入工具与服务读取
// 约束：使用 IF NOT EXISTS，可重复执行
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
