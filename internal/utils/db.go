package utils

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	"geo-cluster/internal/logger"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
)

func BuildPostgresDSNFromEnv() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASSWORD")
	db := os.Getenv("PG_DB")
	if db == "" {
		db = "geocluster"
	}
	ssl := os.Getenv("PG_SSLMODE")
	if ssl == "" {
		ssl = "disable"
	}
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：打开连接池并按 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 调整
// 约束：点集只在会话创建时读取，默认连接数远小于在线查询服务
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	maxOpen := 8
	maxIdle := 4
	if v := os.Getenv("PG_MAX_OPEN_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxOpen = n
		}
	}
	if v := os.Getenv("PG_MAX_IDLE_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxIdle = n
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// PingWithBackoff：启动期间按指数退避重试 ping，直到成功或超过 maxWait
// 背景：容器编排下数据库往往晚于服务就绪
func PingWithBackoff(ctx context.Context, name string, maxWait time.Duration, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 3 * time.Second
	b.MaxElapsedTime = maxWait
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := ping(ctx)
		if err != nil {
			logger.L().Debug("ping_retry", "target", name, "attempt", attempt, "err", err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
