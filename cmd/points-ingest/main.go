// 数据导入工具：把 LON/LAT 分隔文件分批写入 PostgreSQL 的 _geo_points 表
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"geo-cluster/internal/ingest"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/migrate"
	"geo-cluster/internal/store"
	"geo-cluster/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	envFile := flag.String("env", "", "env file with PG_* settings")
	path := flag.String("csv", "", "input file (default $POINTS_CSV)")
	source := flag.String("source", "", "source tag stored with every row")
	replace := flag.Bool("replace", false, "delete rows with the same source tag first")
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	} else {
		_ = godotenv.Load(".env")
	}
	l := logger.Setup()
	if *path == "" {
		*path = os.Getenv("POINTS_CSV")
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: points-ingest -csv <file> [-source tag] [-replace] [-env file]")
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := utils.PingWithBackoff(ctx, "postgres", 15*time.Second, db.PingContext); err != nil {
		l.Error("db_ping_error", "err", err)
		os.Exit(1)
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st, err := ingest.ImportCSVFile(ctx, store.AttachDB(db), *path, *source, *replace)
	if err != nil {
		l.Error("ingest_failed", "written", st.Written, "err", err)
		os.Exit(1)
	}
	fmt.Printf("rows=%d dropped=%d written=%d\n", st.Rows, st.Dropped, st.Written)
}
