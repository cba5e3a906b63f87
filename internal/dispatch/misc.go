package dispatch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/session"
	"github.com/ggonzalez94/seichat/internal/store"
)

// ExampleCommands is the fixed menu offered when a message is not understood.
var ExampleCommands = []string{
	"what's my balance",
	"send 10 SEI to 0x1111111111111111111111111111111111111111",
	"swap 10 SEI for USDC",
	"stake 100 SEI",
	"claim my rewards",
	"show top protocols",
	"price of SEI",
	"create a token named Moon with symbol MOON",
	"wallet info",
}

func (d *Dispatcher) handleTodoAdd(ctx context.Context, res intent.Result, _ session.View) Result {
	text := strings.TrimSpace(res.Entities.TodoText)
	if text == "" {
		return invalid("What should I add to your todo list?", "add todo check staking rewards")
	}
	if d.store == nil {
		return unsupported("Todo storage")
	}
	var todos []model.Todo
	if _, err := store.GetJSON(ctx, d.store, store.KeyTodos, &todos); err != nil {
		return failure(err)
	}
	todos = append(todos, model.Todo{Text: text, CreatedAt: d.now().UTC()})
	if err := store.SetJSON(ctx, d.store, store.KeyTodos, todos); err != nil {
		return failure(err)
	}
	return ok(fmt.Sprintf("Added to your todo list: %s (%d item(s) total).", text, len(todos)), map[string]any{"todos": todos})
}

func (d *Dispatcher) handleTodoList(ctx context.Context, _ intent.Result, _ session.View) Result {
	if d.store == nil {
		return unsupported("Todo storage")
	}
	var todos []model.Todo
	if _, err := store.GetJSON(ctx, d.store, store.KeyTodos, &todos); err != nil {
		return failure(err)
	}
	if len(todos) == 0 {
		return ok("Your todo list is empty.", map[string]any{"todos": todos})
	}
	var b strings.Builder
	b.WriteString("Your todo list:")
	for i, t := range todos {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Text)
	}
	return ok(b.String(), map[string]any{"todos": todos})
}

// Examples returns a copy of the first n example commands.
func Examples(n int) []string {
	return slices.Clone(ExampleCommands[:min(n, len(ExampleCommands))])
}

func menu(intro string) string {
	var b strings.Builder
	b.WriteString(intro)
	for _, c := range ExampleCommands {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}

func (d *Dispatcher) handleHelp(context.Context, intent.Result, session.View) Result {
	out := ok(menu("I can help you manage assets on Sei. Try one of these:"), nil)
	out.FollowUp = Examples(4)
	return out
}

func (d *Dispatcher) handleConversation(context.Context, intent.Result, session.View) Result {
	out := ok(menu("Hi! I'm your Sei DeFi assistant. Here are some things you can ask:"), nil)
	out.FollowUp = Examples(4)
	return out
}

func (d *Dispatcher) handleUnknown(context.Context, intent.Result, session.View) Result {
	return Result{
		Success:  false,
		Message:  menu("I didn't understand that. Here are some things I can do:"),
		Data:     map[string]any{DataErrorType: "unknown_intent"},
		FollowUp: Examples(4),
	}
}
