package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 12*time.Hour, cfg.JWTTTL)
	require.Equal(t, "campusquiz", cfg.JWTIssuer)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, 5, cfg.WorkerConcurrency)
	require.Equal(t, 720*time.Hour, cfg.LeaderboardTTL)
	require.False(t, cfg.AutoMigrate)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsShortProductionSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "32 bytes")
}

func TestLoadConfigRejectsNonPositiveRateLimit(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "rate limit")
}
