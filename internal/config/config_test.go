package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "API_BASE", "UI_DIST", "POINTS_SOURCE", "PROJ_WIDTH", "PLAY_INTERVAL_MS", "NAIVE_SAMPLE_SIZE", "REDIS_ENABLE"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, filepath.Join("ui", "dist"), c.UIDist)
	assert.Equal(t, "csv", c.PointsSource)
	assert.Equal(t, 800, c.ProjWidth)
	assert.Equal(t, 600, c.ProjHeight)
	assert.Equal(t, 1000.0, c.ProjScale)
	assert.Equal(t, 50, c.NaiveSampleSize)
	assert.Equal(t, 5_000_000, c.NaiveMaxCombinations)
	assert.Equal(t, time.Second, c.PlayInterval)
	assert.False(t, c.RedisEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("POINTS_SOURCE", "Postgres")
	t.Setenv("PLAY_INTERVAL_MS", "250")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_QPS", "2.5")
	t.Setenv("NAIVE_DEFAULT_K", "4")
	c := Load()
	assert.Equal(t, "/v1", c.APIBase)
	assert.Equal(t, "postgres", c.PointsSource)
	assert.Equal(t, 250*time.Millisecond, c.PlayInterval)
	assert.True(t, c.RateLimitEnabled)
	assert.Equal(t, 2.5, c.RateLimitQPS)
	assert.Equal(t, 4, c.NaiveDefaultK)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("PROJ_WIDTH", "wide")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")
	c := Load()
	assert.Equal(t, 800, c.ProjWidth)
	assert.False(t, c.RateLimitEnabled)
}
