package responder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicheradice/support-platform/internal/llm"
	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/relay"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
)

type stubClient struct {
	reply   string
	err     error
	lastReq *llm.CompletionRequest
}

func (s *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply}, nil
}

func (s *stubClient) Name() string { return "stub" }

type fixture struct {
	responder     *Responder
	client        *stubClient
	conversations *service.ConversationService
	messages      *service.MessageService
	hub           *relay.Hub
}

func newFixture(t *testing.T, client *stubClient) *fixture {
	t.Helper()

	log := logger.NewNop()

	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "responder.db"), PoolSize: 1, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	conversations := service.NewConversationService(st, log)
	messages := service.NewMessageService(st, log)

	hub := relay.NewHub(relay.NewLocalTransport(), log)
	require.NoError(t, hub.Start())

	r := New(client, Config{
		TypingDelay:     time.Millisecond,
		CompletionLimit: time.Second,
	}, conversations, messages, hub, log)

	return &fixture{
		responder:     r,
		client:        client,
		conversations: conversations,
		messages:      messages,
		hub:           hub,
	}
}

func (f *fixture) createConversation(t *testing.T) *model.Conversation {
	t.Helper()

	conv, err := f.conversations.Create(context.Background(), &model.CreateConversationRequest{
		CustomerID: "cust-1",
	})
	require.NoError(t, err)
	return conv
}

func TestRespondPersistsAndBroadcasts(t *testing.T) {
	f := newFixture(t, &stubClient{reply: "Our team will contact you directly."})
	conv := f.createConversation(t)

	ctx := context.Background()
	_, err := f.messages.Create(ctx, conv.ID, model.SenderCustomer, "what do you offer")
	require.NoError(t, err)

	f.responder.Respond(ctx, conv.ID, "what do you offer")

	messages, err := f.messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.SenderOperator, messages[1].Sender)
	assert.Equal(t, "Our team will contact you directly.", messages[1].Content)
}

func TestRespondSendsSystemPromptAndHistory(t *testing.T) {
	client := &stubClient{reply: "Certainly."}
	f := newFixture(t, client)
	conv := f.createConversation(t)

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := f.messages.Create(ctx, conv.ID, model.SenderCustomer, "message")
		require.NoError(t, err)
	}

	f.responder.Respond(ctx, conv.ID, "latest question")

	require.NotNil(t, client.lastReq)
	assert.Contains(t, client.lastReq.SystemPrompt, "Eliche Radice LB")

	// At most five history messages plus the latest one.
	assert.Len(t, client.lastReq.Messages, 6)
	assert.Equal(t, "latest question", client.lastReq.Messages[5].Content)
	assert.Equal(t, "user", client.lastReq.Messages[5].Role)
}

func TestRespondClientErrorIsSilent(t *testing.T) {
	f := newFixture(t, &stubClient{err: errors.New("rate limited")})
	conv := f.createConversation(t)

	ctx := context.Background()
	f.responder.Respond(ctx, conv.ID, "hello")

	messages, err := f.messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRespondEmptyReplyIsDropped(t *testing.T) {
	f := newFixture(t, &stubClient{reply: "   "})
	conv := f.createConversation(t)

	ctx := context.Background()
	f.responder.Respond(ctx, conv.ID, "hello")

	messages, err := f.messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRespondCancelledDuringDelay(t *testing.T) {
	client := &stubClient{reply: "Too late."}
	f := newFixture(t, client)
	f.responder.typingDelay = time.Hour
	conv := f.createConversation(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.responder.Respond(ctx, conv.ID, "hello")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Respond did not return after cancellation")
	}

	messages, err := f.messages.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRespondRoleMapping(t *testing.T) {
	client := &stubClient{reply: "Noted."}
	f := newFixture(t, client)
	conv := f.createConversation(t)

	ctx := context.Background()
	_, err := f.messages.Create(ctx, conv.ID, model.SenderCustomer, "question")
	require.NoError(t, err)
	_, err = f.messages.Create(ctx, conv.ID, model.SenderOperator, "answer")
	require.NoError(t, err)

	f.responder.Respond(ctx, conv.ID, "followup")

	require.NotNil(t, client.lastReq)
	require.Len(t, client.lastReq.Messages, 3)
	assert.Equal(t, "user", client.lastReq.Messages[0].Role)
	assert.Equal(t, "assistant", client.lastReq.Messages[1].Role)
}
