package utils

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	for _, k := range []string{"PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DB", "PG_SSLMODE"} {
		t.Setenv(k, "")
	}
	assert.Equal(t, "postgres://postgres@localhost:5432/geocluster?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DB", "points")
	assert.Equal(t, "postgres://postgres:secret@db:5432/points?sslmode=disable", BuildPostgresDSNFromEnv())
}

func TestPingWithBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := PingWithBackoff(context.Background(), "test", 5*time.Second, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPingWithBackoff_GivesUp(t *testing.T) {
	err := PingWithBackoff(context.Background(), "test", 300*time.Millisecond, func(context.Context) error {
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
}

func TestPingWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := PingWithBackoff(ctx, "test", time.Minute, func(context.Context) error {
		return errors.New("down")
	})
	assert.Error(t, err)
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "certs", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "demo.local", "10.0.0.1"))

	pair, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.Contains(t, leaf.DNSNames, "demo.local")
	assert.NoError(t, leaf.VerifyHostname("10.0.0.1"))

	info, err := os.Stat(key)
	require.NoError(t, err)
	before := info.ModTime()
	require.NoError(t, EnsureSelfSignedCert(cert, key))
	info, err = os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}
