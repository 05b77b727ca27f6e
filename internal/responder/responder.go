// Package responder implements the AI auto-response bridge: after a
// customer message, it drafts a reply with the configured LLM and
// injects it into the conversation as an operator message.
package responder

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elicheradice/support-platform/internal/llm"
	"github.com/elicheradice/support-platform/internal/model"
	"github.com/elicheradice/support-platform/internal/relay"
	"github.com/elicheradice/support-platform/internal/service"
	"github.com/elicheradice/support-platform/pkg/logger"
	"github.com/elicheradice/support-platform/pkg/metrics"
)

// systemPrompt constrains the assistant to safe, non-committal support
// answers. Anything operational gets deferred to a human.
const systemPrompt = `You are a professional assistant for Eliche Radice LB, a luxury yacht maintenance company in Lebanon.

CRITICAL RULES:
1. NEVER handle emergencies - say "A technician will contact you immediately"
2. Keep responses brief (2-3 sentences max)
3. Professional, calm, reassuring tone
4. Never commit to pricing or timing
5. For urgent issues, say "Our team will reach out shortly"
6. Maintain luxury brand standards

You can:
- Answer general questions about services
- Provide basic information
- Acknowledge receipt
- Reassure customers

You MUST say "Our team will contact you directly" for:
- Emergencies
- Pricing
- Scheduling
- Technical diagnosis`

const (
	historyLimit = 5
	maxTokens    = 150
	temperature  = 0.7
)

// Responder drafts and delivers auto-responses.
type Responder struct {
	client        llm.Client
	model         string
	conversations *service.ConversationService
	messages      *service.MessageService
	hub           *relay.Hub
	logger        *logger.Logger

	// typingDelay holds the response back so it does not land the same
	// instant as the customer's message.
	typingDelay time.Duration

	// completionLimit caps the LLM round trip.
	completionLimit time.Duration
}

// Config carries the responder's tunables.
type Config struct {
	Model           string
	TypingDelay     time.Duration
	CompletionLimit time.Duration
}

// New creates a responder.
func New(
	client llm.Client,
	cfg Config,
	conversations *service.ConversationService,
	messages *service.MessageService,
	hub *relay.Hub,
	log *logger.Logger,
) *Responder {
	return &Responder{
		client:          client,
		model:           cfg.Model,
		conversations:   conversations,
		messages:        messages,
		hub:             hub,
		logger:          log,
		typingDelay:     cfg.TypingDelay,
		completionLimit: cfg.CompletionLimit,
	}
}

// Respond generates a reply to the latest customer message and
// broadcasts it to the conversation room. Every failure is terminal
// and silent toward the customer: the message simply waits for a
// human. Blocks for the typing delay; callers run it in a goroutine.
func (r *Responder) Respond(ctx context.Context, conversationID, latestText string) {
	start := time.Now()

	reply, err := r.draft(ctx, conversationID, latestText)
	if err != nil {
		metrics.RecordResponder("error", time.Since(start).Seconds())
		r.logger.Warn("responder: draft failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return
	}
	if reply == "" {
		metrics.RecordResponder("empty", time.Since(start).Seconds())
		return
	}

	select {
	case <-time.After(r.typingDelay):
	case <-ctx.Done():
		metrics.RecordResponder("cancelled", time.Since(start).Seconds())
		return
	}

	msg, err := r.messages.Create(ctx, conversationID, model.SenderOperator, reply)
	if err != nil {
		metrics.RecordResponder("error", time.Since(start).Seconds())
		r.logger.Warn("responder: persist failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return
	}
	if _, err := r.conversations.TouchLastMessage(ctx, conversationID); err != nil {
		r.logger.Warn("responder: touch failed", zap.Error(err))
	}

	r.hub.BroadcastRoom(conversationID, model.EventMessageReceived, model.MessageReceivedPayload{
		Message: *msg,
		IsAI:    true,
	})

	metrics.RecordResponder("sent", time.Since(start).Seconds())
	r.logger.Info("responder: auto-response sent",
		zap.String("conversation_id", conversationID),
		zap.String("message_id", msg.ID),
	)
}

// draft builds the prompt from recent history and asks the LLM for a
// reply.
func (r *Responder) draft(ctx context.Context, conversationID, latestText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.completionLimit)
	defer cancel()

	history, err := r.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	chat := make([]llm.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		role := "assistant"
		if msg.Sender == model.SenderCustomer {
			role = "user"
		}
		chat = append(chat, llm.ChatMessage{Role: role, Content: msg.Content})
	}
	chat = append(chat, llm.ChatMessage{Role: "user", Content: latestText})

	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model:        r.model,
		SystemPrompt: systemPrompt,
		Messages:     chat,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}
