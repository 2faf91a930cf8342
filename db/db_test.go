package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	assert.Equal(t, Options{PingTimeout: 5 * time.Second, MaxOpenConns: 25, MaxIdleConns: 25, ConnMaxLifetime: 5 * time.Minute}, got)

	got = Options{MaxOpenConns: 10, MaxIdleConns: 40}.withDefaults()
	assert.Equal(t, 10, got.MaxOpenConns)
	assert.Equal(t, 10, got.MaxIdleConns, "idle pool never exceeds the open limit")

	got = Options{PingTimeout: time.Second, MaxOpenConns: 8, MaxIdleConns: 2, ConnMaxLifetime: time.Minute}.withDefaults()
	assert.Equal(t, Options{PingTimeout: time.Second, MaxOpenConns: 8, MaxIdleConns: 2, ConnMaxLifetime: time.Minute}, got)
}
