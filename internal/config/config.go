// 包 config：进程配置，统一从环境变量读取并回退到默认值
//
// 文档注释：Load 之前由 main 通过 godotenv 载入 .env 与 data/env/.env
// 约束：数值解析失败时忽略并使用默认值，与历史行为一致
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	APIBase string
	UIDist  string

	// 点集来源：csv（默认）或 postgres
	PointsSource string
	PointsCSV    string

	ProjWidth  int
	ProjHeight int
	ProjScale  float64

	LloydDefaultK        int
	NaiveDefaultK        int
	NaiveSampleSize      int
	NaiveSampleSeed      int64
	NaiveMaxCombinations int

	PlayInterval time.Duration
	SessionTTL   time.Duration
	RandomSeed   int64

	RateLimitEnabled bool
	RateLimitQPS     float64

	RedisEnabled   bool
	ResultCacheTTL time.Duration

	TLSEnabled bool
	TLSCert    string
	TLSKey     string
}

// LoadEnvFiles：按顺序加载 .env 文件，已存在的变量不会被覆盖
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

func Load() Config {
	return Config{
		Addr:                 str("ADDR", ":8080"),
		APIBase:              strings.TrimRight(str("API_BASE", "/api"), "/"),
		UIDist:               str("UI_DIST", filepath.Join("ui", "dist")),
		PointsSource:         strings.ToLower(str("POINTS_SOURCE", "csv")),
		PointsCSV:            str("POINTS_CSV", filepath.Join("data", "points.csv")),
		ProjWidth:            intv("PROJ_WIDTH", 800),
		ProjHeight:           intv("PROJ_HEIGHT", 600),
		ProjScale:            floatv("PROJ_SCALE", 1000),
		LloydDefaultK:        intv("LLOYD_DEFAULT_K", 5),
		NaiveDefaultK:        intv("NAIVE_DEFAULT_K", 3),
		NaiveSampleSize:      intv("NAIVE_SAMPLE_SIZE", 50),
		NaiveSampleSeed:      int64(intv("NAIVE_SAMPLE_SEED", 1)),
		NaiveMaxCombinations: intv("NAIVE_MAX_COMBINATIONS", 5_000_000),
		PlayInterval:         time.Duration(intv("PLAY_INTERVAL_MS", 1000)) * time.Millisecond,
		SessionTTL:           time.Duration(intv("SESSION_TTL_S", 1800)) * time.Second,
		RandomSeed:           int64(intv("RANDOM_SEED", 0)),
		RateLimitEnabled:     boolv("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:         floatv("RATE_LIMIT_QPS", 20),
		RedisEnabled:         boolv("REDIS_ENABLE", false),
		ResultCacheTTL:       time.Duration(intv("RESULT_CACHE_TTL_S", 3600)) * time.Second,
		TLSEnabled:           boolv("TLS_ENABLE", false),
		TLSCert:              str("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKey:               str("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func floatv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return def
}

func boolv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
