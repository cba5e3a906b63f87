// Package llm is the optional free-form responder consulted when a message
// does not resolve to an action.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unsafe"

	json "github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/samber/lo"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/model"
)

const systemPrompt = `You are a concise assistant for a Sei blockchain DeFi chat wallet.
You never move funds yourself: on-chain actions are handled by typed commands such as
"send 10 SEI to 0x...", "swap 10 SEI for USDC", "stake 100 SEI" or "what's my balance".
When the user asks a general question, answer briefly. When they seem to want an action,
point them at the matching command. Respond with a JSON object:
{"reply": "<your answer>", "suggestions": ["<up to three example commands>"]}`

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Reply is a parsed model answer.
type Reply struct {
	Message     string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type Client struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, clierr.New(clierr.CodeAuth, "llm api key is not set")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, clierr.New(clierr.CodeUsage, "llm model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Generate asks the model for a reply to prompt given the recent history.
func (c *Client) Generate(ctx context.Context, prompt string, history []model.HistoryMessage) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	for _, m := range history {
		switch m.Role {
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: lo.ToPtr(shared.NewResponseFormatJSONObjectParam()),
		},
	})
	if err != nil {
		return Reply{}, clierr.Wrap(clierr.CodeUnavailable, "llm completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return Reply{}, clierr.New(clierr.CodeUnavailable, "llm returned no choices")
	}
	return ParseReply(completion.Choices[0].Message.Content)
}

// ParseReply decodes a model answer. Malformed JSON is repaired first; an
// answer that is not JSON at all is used verbatim.
func ParseReply(content string) (Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Reply{}, clierr.New(clierr.CodeUnavailable, "llm returned an empty reply")
	}
	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "```") {
		return Reply{Message: content}, nil
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return Reply{}, clierr.Wrap(clierr.CodeUnavailable, "failed to repair llm json", err)
	}
	var reply Reply
	if err := json.Unmarshal(unsafe.Slice(unsafe.StringData(repaired), len(repaired)), &reply); err != nil {
		return Reply{}, clierr.Wrap(clierr.CodeUnavailable, "failed to parse llm reply", err)
	}
	reply.Message = strings.TrimSpace(reply.Message)
	if reply.Message == "" {
		return Reply{}, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("llm reply has no text: %s", repaired))
	}
	if len(reply.Suggestions) > 3 {
		reply.Suggestions = reply.Suggestions[:3]
	}
	return reply, nil
}
