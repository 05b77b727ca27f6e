package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/notify"
	"github.com/elicheradice/support-platform/internal/relay"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/internal/settings"
	"github.com/elicheradice/support-platform/internal/store"
	"github.com/elicheradice/support-platform/pkg/logger"
)

// frameRecorder captures every frame the hub publishes.
type frameRecorder struct {
	mu     sync.Mutex
	frames []model.Envelope
}

func (r *frameRecorder) record(subject string, data []byte) {
	var f struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	r.mu.Lock()
	r.frames = append(r.frames, model.Envelope{Event: f.Event, Data: f.Data})
	r.mu.Unlock()
}

func (r *frameRecorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]string, len(r.frames))
	for i, f := range r.frames {
		events[i] = f.Event
	}
	return events
}

type apiFixture struct {
	router        chi.Router
	conversations *service.ConversationService
	messages      *service.MessageService
	settings      *settings.Store
	recorder      *frameRecorder
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := logger.NewNop()

	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "api.db"), PoolSize: 1, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	conversations := service.NewConversationService(st, log)
	messages := service.NewMessageService(st, log)

	aiSettings, err := settings.Open(filepath.Join(t.TempDir(), "setting.json"), log)
	require.NoError(t, err)

	transport := relay.NewLocalTransport()
	recorder := &frameRecorder{}
	_, err = transport.Subscribe("chat.>", recorder.record)
	require.NoError(t, err)

	hub := relay.NewHub(transport, log)
	require.NoError(t, hub.Start())

	mailer := notify.NewMailer(notify.Config{}, log)

	conversationHandler := NewConversationHandler(conversations, messages, hub, log)
	messageHandler := NewMessageHandler(conversations, messages, log)
	settingsHandler := NewSettingsHandler(aiSettings, log)
	notificationHandler := NewNotificationHandler(mailer, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Get("/all", conversationHandler.ListAll)
			r.Post("/", conversationHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Patch("/status", conversationHandler.UpdateStatus)
				r.Patch("/priority", conversationHandler.UpdatePriority)
				r.Patch("/customer-info", conversationHandler.UpdateCustomerInfo)
			})
		})
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Create)
			r.Get("/", messageHandler.List)
			r.Patch("/{id}/read", messageHandler.MarkRead)
		})
		r.Get("/ai-setting", settingsHandler.Get)
		r.Post("/ai-setting", settingsHandler.Set)
		r.Post("/notifications/new-customer", notificationHandler.NewCustomer)
	})

	return &apiFixture{
		router:        r,
		conversations: conversations,
		messages:      messages,
		settings:      aiSettings,
		recorder:      recorder,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestCreateConversationEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/conversations", model.CreateConversationRequest{
		CustomerID:    "cust-1",
		CustomerName:  "Marco",
		CustomerPhone: "+961 70 000000",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	conv := decodeData[model.Conversation](t, w)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "cust-1", conv.CustomerID)
	assert.Equal(t, model.StatusActive, conv.Status)

	// Every operator dashboard hears about the new conversation.
	events := f.recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventConversationNew, events[0])
}

func TestCreateConversationValidationEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/conversations", map[string]string{"customerId": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Customer ID required")
}

func TestGetConversationWithMessages(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)
	_, err = f.messages.Create(ctx, conv.ID, model.SenderCustomer, "hello")
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/conversations/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeData[model.ConversationWithMessages](t, w)
	assert.Equal(t, conv.ID, got.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestGetConversationNotFoundEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/conversations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Conversation not found")
}

func TestListConversationsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	active, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-a"})
	require.NoError(t, err)
	resolved, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-r"})
	require.NoError(t, err)
	_, err = f.conversations.SetStatus(ctx, resolved.ID, model.StatusResolved)
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]model.Conversation](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	w = f.do(t, http.MethodGet, "/api/conversations/all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decodeData[[]model.Conversation](t, w)
	assert.Len(t, all, 2)
}

func TestResolveConversationSendsClosingMessage(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", model.UpdateStatusRequest{
		Status: model.StatusResolved,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeData[model.Conversation](t, w)
	assert.Equal(t, model.StatusResolved, got.Status)

	// The farewell lands before the status announcement.
	events := f.recorder.events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventMessageReceived, events[0])
	assert.Equal(t, model.EventConversationStatus, events[1])

	messages, err := f.messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.SenderOperator, messages[0].Sender)
	assert.Contains(t, messages[0].Content, "Your request has been resolved")
}

func TestUpdateStatusToWaitingNoBroadcast(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", model.UpdateStatusRequest{
		Status: model.StatusWaiting,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.recorder.events())
}

func TestUpdateStatusInvalid(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid status")
}

func TestUpdatePriorityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/priority", model.UpdatePriorityRequest{
		Priority: model.PriorityCritical,
	})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[model.Conversation](t, w)
	assert.Equal(t, model.PriorityCritical, got.Priority)

	w = f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/priority", map[string]string{"priority": "extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/conversations/missing/priority", model.UpdatePriorityRequest{
		Priority: model.PriorityHigh,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCustomerInfoEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/customer-info", model.UpdateCustomerInfoRequest{
		CustomerName:  "Nadia",
		CustomerPhone: "+961 71 111111",
	})
	require.Equal(t, http.StatusOK, w.Code)

	info := decodeData[model.CustomerInfo](t, w)
	assert.Equal(t, "Nadia", info.CustomerName)
	assert.Equal(t, "+961 71 111111", info.CustomerPhone)
}

func TestUpdateCustomerInfoRequiresBothFields(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{
		CustomerID:    "cust-1",
		CustomerName:  "Nadia",
		CustomerPhone: "+961 71 111111",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/customer-info", map[string]string{
		"customerName": "Only a name",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Name and phone required"}`, w.Body.String())

	// A partial body must not erase the stored info.
	got, err := f.conversations.Find(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nadia", got.CustomerName)
	assert.Equal(t, "+961 71 111111", got.CustomerPhone)
}

func TestCreateMessageEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/messages", model.CreateMessageRequest{
		ConversationID: conv.ID,
		Sender:         model.SenderOperator,
		Content:        "hello from the REST path",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	msg := decodeData[model.Message](t, w)
	assert.Equal(t, conv.ID, msg.ConversationID)
	assert.Equal(t, model.SenderOperator, msg.Sender)

	// No broadcast on the REST path.
	assert.Empty(t, f.recorder.events())
}

func TestCreateMessageEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/messages", model.CreateMessageRequest{
		ConversationID: "missing",
		Sender:         model.SenderCustomer,
		Content:        "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/messages", map[string]string{
		"conversationId": "x",
		"sender":         "robot",
		"content":        "hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid sender")
}

func TestListMessagesEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)
	_, err = f.messages.Create(ctx, conv.ID, model.SenderCustomer, "hello")
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/messages?conversationId="+conv.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]model.Message](t, w)
	assert.Len(t, list, 1)

	w = f.do(t, http.MethodGet, "/api/messages", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/messages?conversationId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx, &model.CreateConversationRequest{CustomerID: "cust-1"})
	require.NoError(t, err)
	msg, err := f.messages.Create(ctx, conv.ID, model.SenderCustomer, "unread")
	require.NoError(t, err)

	w := f.do(t, http.MethodPatch, fmt.Sprintf("/api/messages/%s/read", msg.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[model.Message](t, w)
	assert.True(t, got.Read)

	w = f.do(t, http.MethodPatch, "/api/messages/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAISettingEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/ai-setting", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":false}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/ai-setting", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":true}`, w.Body.String())
	assert.True(t, f.settings.Enabled())

	w = f.do(t, http.MethodGet, "/api/ai-setting", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":true}`, w.Body.String())
}

func TestNewCustomerNotificationEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	// No SMTP credentials configured: the endpoint still succeeds.
	w := f.do(t, http.MethodPost, "/api/notifications/new-customer", map[string]string{
		"customerName":   "Marco",
		"customerPhone":  "+961 70 000000",
		"conversationId": "conv-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skipped")

	w = f.do(t, http.MethodPost, "/api/notifications/new-customer", map[string]string{
		"customerName": "Marco",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing customer information")
}
