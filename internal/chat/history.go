package chat

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"

	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	// maxHistory bounds both the buffer and what is handed to the LLM.
	maxHistory = 100
	llmWindow  = 10
)

// History is the transcript of one session. It lives in a langchaingo
// buffer and is mirrored to the store when one is configured.
type History struct {
	buf   *memory.ConversationBuffer
	store store.Store
	key   string
}

func historyKey(sessionID string) string {
	return "history:" + sessionID
}

// loadHistory restores a persisted transcript for sessionID.
func loadHistory(ctx context.Context, s store.Store, sessionID string) (*History, error) {
	h := &History{buf: memory.NewConversationBuffer(), store: s, key: historyKey(sessionID)}
	if s == nil {
		return h, nil
	}
	var saved []model.HistoryMessage
	if _, err := store.GetJSON(ctx, s, h.key, &saved); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, m := range saved {
		if err := h.buf.ChatHistory.AddMessage(ctx, toChatMessage(m)); err != nil {
			return nil, fmt.Errorf("restore history: %w", err)
		}
	}
	return h, nil
}

func toChatMessage(m model.HistoryMessage) llms.ChatMessage {
	switch m.Role {
	case RoleAssistant:
		return llms.AIChatMessage{Content: m.Content}
	case RoleSystem:
		return llms.SystemChatMessage{Content: m.Content}
	default:
		return llms.HumanChatMessage{Content: m.Content}
	}
}

func (h *History) Append(ctx context.Context, role, content string) error {
	var err error
	switch role {
	case RoleUser:
		err = h.buf.ChatHistory.AddUserMessage(ctx, content)
	case RoleAssistant:
		err = h.buf.ChatHistory.AddAIMessage(ctx, content)
	default:
		err = h.buf.ChatHistory.AddMessage(ctx, llms.SystemChatMessage{Content: content})
	}
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	msgs, err := h.Messages(ctx)
	if err != nil {
		return err
	}
	if len(msgs) > maxHistory {
		msgs = msgs[len(msgs)-maxHistory:]
		if err := h.reset(ctx, msgs); err != nil {
			return err
		}
	}
	return h.persist(ctx, msgs)
}

func (h *History) Messages(ctx context.Context) ([]model.HistoryMessage, error) {
	raw, err := h.buf.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]model.HistoryMessage, 0, len(raw))
	for _, msg := range raw {
		switch m := msg.(type) {
		case llms.HumanChatMessage:
			out = append(out, model.HistoryMessage{Role: RoleUser, Content: m.Content})
		case llms.AIChatMessage:
			out = append(out, model.HistoryMessage{Role: RoleAssistant, Content: m.Content})
		case llms.SystemChatMessage:
			out = append(out, model.HistoryMessage{Role: RoleSystem, Content: m.Content})
		}
	}
	return out, nil
}

// Recent returns at most n trailing messages.
func (h *History) Recent(ctx context.Context, n int) ([]model.HistoryMessage, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

func (h *History) Clear(ctx context.Context) error {
	if err := h.buf.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return h.persist(ctx, []model.HistoryMessage{})
}

func (h *History) reset(ctx context.Context, msgs []model.HistoryMessage) error {
	if err := h.buf.Clear(ctx); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	for _, m := range msgs {
		if err := h.buf.ChatHistory.AddMessage(ctx, toChatMessage(m)); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}
	return nil
}

func (h *History) persist(ctx context.Context, msgs []model.HistoryMessage) error {
	if h.store == nil {
		return nil
	}
	return store.SetJSON(ctx, h.store, h.key, msgs)
}
