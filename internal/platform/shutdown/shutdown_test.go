package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownStopsServicesAndRunsFinalizers(t *testing.T) {
	graceful := lifecycle.NewManager("graceful", logging.Log)
	forceful := lifecycle.NewManager("forceful", logging.Log)

	var stopped atomic.Bool
	require.NoError(t, graceful.Go("worker", func(h *lifecycle.Handle) {
		defer h.Close()
		<-h.Done()
		stopped.Store(true)
	}))

	var finalized atomic.Bool
	c := NewCoordinator(graceful, forceful)
	c.GracefulTimeout = time.Second
	c.Finalizers = append(c.Finalizers, func() { finalized.Store(true) })

	c.Shutdown(nil)
	assert.True(t, stopped.Load())
	assert.True(t, finalized.Load())
}

func TestShutdownEscalatesToForceful(t *testing.T) {
	graceful := lifecycle.NewManager("graceful", logging.Log)
	forceful := lifecycle.NewManager("forceful", logging.Log)

	forcefulHandle, err := forceful.NewServiceHandle("stubborn")
	require.NoError(t, err)

	var escalated atomic.Bool
	require.NoError(t, graceful.Go("stubborn", func(h *lifecycle.Handle) {
		defer h.Close()
		defer forcefulHandle.Close()
		// 只响应第二阶段信号
		<-forcefulHandle.Done()
		escalated.Store(true)
	}))

	c := NewCoordinator(graceful, forceful)
	c.GracefulTimeout = 50 * time.Millisecond
	c.ForcefulTimeout = time.Second

	c.Shutdown(nil)
	assert.True(t, escalated.Load())
}

func TestListenReturnsWhenContextCancelled(t *testing.T) {
	graceful := lifecycle.NewManager("graceful", logging.Log)
	forceful := lifecycle.NewManager("forceful", logging.Log)
	c := NewCoordinator(graceful, forceful)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.ListenForSignalsAndShutdown(ctx, nil)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("停机未完成")
	}
}
