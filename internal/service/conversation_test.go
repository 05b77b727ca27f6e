package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
)

func newTestServices(t *testing.T) (*ConversationService, *MessageService) {
	t.Helper()

	st, err := store.Open(store.Config{
		Path:     filepath.Join(t.TempDir(), "service.db"),
		PoolSize: 1,
		Logger:   logger.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.NewNop()
	return NewConversationService(st, log), NewMessageService(st, log)
}

func TestCreateConversationDefaults(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{
		CustomerID: "  cust-1  ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "cust-1", conv.CustomerID)
	assert.Equal(t, model.StatusActive, conv.Status)
	assert.Equal(t, model.PriorityNormal, conv.Priority)
	assert.False(t, conv.CreatedAt.IsZero())
	assert.True(t, conv.LastMessageAt.Equal(conv.CreatedAt))
}

func TestCreateConversationValidation(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	_, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "   "})
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "Customer ID required")

	_, err = conversations.Create(ctx, &model.CreateConversationRequest{
		CustomerID: "cust-1",
		Priority:   "extreme",
	})
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "Invalid priority. Must be one of: critical, high, normal")
}

func TestCreateConversationExplicitPriority(t *testing.T) {
	conversations, _ := newTestServices(t)

	conv, err := conversations.Create(context.Background(), &model.CreateConversationRequest{
		CustomerID: "cust-1",
		Priority:   model.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, conv.Priority)
}

func TestFindNotFound(t *testing.T) {
	conversations, _ := newTestServices(t)

	_, err := conversations.Find(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "Conversation not found")
}

func TestSetStatusValidation(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	_, err = conversations.SetStatus(ctx, conv.ID, "archived")
	assert.True(t, IsValidation(err))

	updated, err := conversations.SetStatus(ctx, conv.ID, model.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, updated.Status)

	_, err = conversations.SetStatus(ctx, "missing", model.StatusResolved)
	assert.True(t, IsNotFound(err))
}

func TestSetPriority(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	updated, err := conversations.SetPriority(ctx, conv.ID, model.PriorityCritical)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityCritical, updated.Priority)

	_, err = conversations.SetPriority(ctx, conv.ID, "sky-high")
	assert.True(t, IsValidation(err))
}

func TestTouchLastMessageMovesForward(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	touched, err := conversations.TouchLastMessage(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, touched.LastMessageAt.After(conv.LastMessageAt))
}

func TestUpdateCustomerInfo(t *testing.T) {
	conversations, _ := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	info, err := conversations.UpdateCustomerInfo(ctx, conv.ID, "Nadia", "+961 71 111111")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, info.ID)
	assert.Equal(t, "Nadia", info.CustomerName)
	assert.Equal(t, "+961 71 111111", info.CustomerPhone)

	_, err = conversations.UpdateCustomerInfo(ctx, "missing", "x", "y")
	assert.True(t, IsNotFound(err))
}

func TestExpireStale(t *testing.T) {
	conversations, messages := newTestServices(t)
	ctx := context.Background()

	conv, err := conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)
	_, err = messages.Create(ctx, conv.ID, model.SenderCustomer, "hello")
	require.NoError(t, err)

	// Nothing is older than 24h yet.
	n, err := conversations.ExpireStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// With a zero threshold everything already written is stale.
	time.Sleep(5 * time.Millisecond)
	n, err = conversations.ExpireStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := conversations.Find(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)
}
