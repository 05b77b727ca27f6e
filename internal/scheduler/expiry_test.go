package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
)

func newConversationService(t *testing.T) *service.ConversationService {
	t.Helper()

	log := logger.NewNop()
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "scheduler.db"), PoolSize: 1, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return service.NewConversationService(st, log)
}

func TestExpiryResolvesStaleConversations(t *testing.T) {
	conversations := newConversationService(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	// maxAge of zero makes anything already written stale, so the
	// first sweep after the grace delay resolves it.
	job := NewExpiry(conversations, time.Millisecond, time.Hour, 0, logger.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		job.Run(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		got, err := conversations.Find(ctx, conv.ID)
		return err == nil && got.Status == model.StatusResolved
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiry job did not stop on cancellation")
	}
}

func TestExpiryStopsBeforeFirstSweep(t *testing.T) {
	conversations := newConversationService(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	job := NewExpiry(conversations, time.Hour, time.Hour, 0, logger.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		job.Run(runCtx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiry job did not stop during the grace delay")
	}

	got, err := conversations.Find(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}
