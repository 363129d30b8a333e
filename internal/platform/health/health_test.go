package health

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestStatusAssess(t *testing.T) {
	s := NewStatus()
	s.SetInitialRunID("aaa")

	assert.False(t, s.Assess(true, "aaa"))
	assert.True(t, s.IsHealthy())

	assert.False(t, s.Assess(false, ""))
	assert.Equal(t, StateDegraded, s.State())

	// 恢复连接时run_id变化，视为重启
	assert.True(t, s.Assess(true, "bbb"))
	assert.Equal(t, StateHealthy, s.State())

	assert.False(t, s.Assess(true, "bbb"))
	// 没拿到run_id时不判断重启
	assert.False(t, s.Assess(true, ""))
}

func TestCheckerTracksConnectivity(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	status := NewStatus()
	checker := NewChecker(rdb, status)
	ctx := context.Background()

	checker.PerformCheck(ctx)
	assert.True(t, status.IsHealthy())

	mr.Close()
	checker.PerformCheck(ctx)
	assert.False(t, status.IsHealthy())
	assert.Equal(t, "degraded", status.State().String())
}
