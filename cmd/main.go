// 程序入口：仅负责读取配置、加载点集、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"geo-cluster/internal/api"
	"geo-cluster/internal/config"
	"geo-cluster/internal/geo"
	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"
	"geo-cluster/internal/middleware"
	"geo-cluster/internal/migrate"
	"geo-cluster/internal/points"
	"geo-cluster/internal/resultcache"
	"geo-cluster/internal/session"
	"geo-cluster/internal/store"
	"geo-cluster/internal/utils"
	"geo-cluster/internal/version"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	config.LoadEnvFiles()
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	l.Debug("config_loaded", "api_base", cfg.APIBase, "ui_dir", cfg.UIDist, "points_source", cfg.PointsSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proj := geo.NewAlbersUSA(float64(cfg.ProjWidth), float64(cfg.ProjHeight), cfg.ProjScale)
	pts, err := loadPoints(ctx, cfg, proj)
	if err != nil {
		l.Error("points_load_error", "source", cfg.PointsSource, "err", err)
		os.Exit(1)
	}
	if len(pts) == 0 {
		l.Warn("points_empty", "source", cfg.PointsSource)
	}

	var cache kcenter.ResultCache
	if cfg.RedisEnabled {
		rc := utils.OpenRedisFromEnv()
		defer rc.Close()
		if err := utils.PingWithBackoff(ctx, "redis", 10*time.Second, func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			cache = resultcache.New(rc, cfg.ResultCacheTTL)
		}
	} else {
		l.Info("redis_disabled")
	}

	reg := session.NewRegistry(cfg.SessionTTL, func() session.Options {
		return session.Options{
			Points:          pts,
			LloydK:          cfg.LloydDefaultK,
			NaiveK:          cfg.NaiveDefaultK,
			SampleSize:      cfg.NaiveSampleSize,
			SampleSeed:      cfg.NaiveSampleSeed,
			MaxCombinations: cfg.NaiveMaxCombinations,
			Interval:        cfg.PlayInterval,
			Width:           cfg.ProjWidth,
			Height:          cfg.ProjHeight,
			Cache:           cache,
			Seed:            cfg.RandomSeed,
		}
	})
	defer reg.Close()

	apiMux := api.BuildRoutes(reg, api.Defaults{LloydK: cfg.LloydDefaultK, NaiveK: cfg.NaiveDefaultK, SolveTimeout: 2 * time.Minute})
	mux := http.NewServeMux()
	// WebSocket 需要 Hijack，不能经过压缩包装
	mux.Handle(cfg.APIBase+"/ws", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/", gzhttp.GzipHandler(http.StripPrefix(cfg.APIBase, apiMux)))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	mux.Handle("/", gzhttp.GzipHandler(http.FileServer(http.Dir(cfg.UIDist))))

	// NOTE: 向前端暴露 API 基础路径与画布尺寸，避免硬编码
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + cfg.APIBase + "'\n"))
		_, _ = w.Write([]byte("window.__PLAY_INTERVAL_MS__=" + strconv.Itoa(int(cfg.PlayInterval.Milliseconds())) + "\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'"))
	})

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(cfg, handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.TLSEnabled {
			if err := utils.EnsureSelfSignedCert(cfg.TLSCert, cfg.TLSKey); err != nil {
				return err
			}
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCert, "points", len(pts))
			err = s.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			l.Info("listening", "addr", cfg.Addr, "points", len(pts))
			err = s.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutdown_begin")
		return s.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}

// loadPoints：POINTS_SOURCE=postgres 时从 _geo_points 读取，否则读取 POINTS_CSV
func loadPoints(ctx context.Context, cfg config.Config, proj geo.Projector) ([]points.Point, error) {
	if cfg.PointsSource != "postgres" {
		pts, _, err := points.LoadCSVFile(cfg.PointsCSV, proj)
		return pts, err
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := utils.PingWithBackoff(ctx, "postgres", 30*time.Second, db.PingContext); err != nil {
		return nil, err
	}
	logger.L().Info("db_ping_ok")
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	raws, err := store.AttachDB(db).LoadRaw(ctx, os.Getenv("POINTS_DB_SOURCE"))
	if err != nil {
		return nil, err
	}
	pts, dropped := points.Project(raws, proj)
	metrics.PointsDroppedTotal.Add(float64(dropped))
	logger.L().Info("points_loaded", "source", "postgres", "rows", len(raws), "dropped", dropped, "points", len(pts))
	return pts, nil
}
