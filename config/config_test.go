package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":   "postgres://localhost/ranked",
		"JWT_SECRET_KEY": "secret",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.True(t, cfg.AllowByes)
	assert.False(t, cfg.StorageEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	env := baseEnv()
	env["SERVER_PORT"] = "9000"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example,"
	env["RATE_LIMIT_RPS"] = "0.5"
	env["RATE_LIMIT_BURST"] = "3"
	env["ALLOW_BYES"] = "false"
	env["R2_ACCOUNT_ID"] = "acc"
	env["R2_ACCESS_KEY_ID"] = "key"
	env["R2_SECRET_ACCESS_KEY"] = "secret"
	env["R2_BUCKET_NAME"] = "evidence"
	env["R2_PUBLIC_BASE_URL"] = "https://cdn.example"

	cfg, err := FromEnv(envFrom(env))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.False(t, cfg.AllowByes)
	assert.True(t, cfg.StorageEnabled())
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		mut  func(map[string]string)
		want string
	}{
		{"missing db", func(m map[string]string) { delete(m, "DATABASE_URL") }, "DATABASE_URL"},
		{"missing jwt", func(m map[string]string) { delete(m, "JWT_SECRET_KEY") }, "JWT_SECRET_KEY"},
		{"bad port", func(m map[string]string) { m["SERVER_PORT"] = "http" }, "SERVER_PORT"},
		{"port range", func(m map[string]string) { m["SERVER_PORT"] = "70000" }, "SERVER_PORT"},
		{"partial r2", func(m map[string]string) { m["R2_BUCKET_NAME"] = "b" }, "partially configured"},
		{"bad rps", func(m map[string]string) { m["RATE_LIMIT_RPS"] = "-1" }, "RATE_LIMIT_RPS"},
		{"bad burst", func(m map[string]string) { m["RATE_LIMIT_BURST"] = "0" }, "RATE_LIMIT_BURST"},
		{"bad byes", func(m map[string]string) { m["ALLOW_BYES"] = "maybe" }, "ALLOW_BYES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			tt.mut(env)
			_, err := FromEnv(envFrom(env))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
