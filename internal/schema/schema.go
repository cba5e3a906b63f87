// Package schema describes the CLI surface and the chat intents it accepts
// in machine-readable form.
package schema

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ggonzalez94/seichat/internal/compose"
	"github.com/ggonzalez94/seichat/internal/intent"
)

// Document is what `seichat schema` prints.
type Document struct {
	Command CommandSchema  `json:"command"`
	Intents []IntentSchema `json:"intents,omitempty"`
}

type IntentSchema struct {
	Name          string   `json:"name"`
	StateChanging bool     `json:"state_changing"`
	Examples      []string `json:"examples,omitempty"`
}

type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Short       string          `json:"short"`
	Aliases     []string        `json:"aliases,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	if strings.TrimSpace(commandPath) != "" {
		parts := strings.Fields(strings.TrimSpace(commandPath))
		for _, p := range parts {
			found := false
			for _, c := range cmd.Commands() {
				if c.Name() == p || lo.Contains(c.Aliases, p) {
					cmd = c
					found = true
					break
				}
			}
			if !found {
				return CommandSchema{}, fmt.Errorf("command not found: %s", commandPath)
			}
		}
	}
	return serialize(cmd), nil
}

func serialize(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:    strings.TrimSpace(cmd.CommandPath()),
		Use:     cmd.Use,
		Short:   cmd.Short,
		Aliases: cmd.Aliases,
		Flags:   collectFlags(cmd),
	}

	subs := cmd.Commands()
	for _, sub := range subs {
		if sub.Hidden {
			continue
		}
		s.Subcommands = append(s.Subcommands, serialize(sub))
	}

	return s
}

func collectFlags(cmd *cobra.Command) []FlagSchema {
	items := []FlagSchema{}
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		item := FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
		}
		items = append(items, item)
	})
	return items
}

// Intents lists every chat intent with the example phrasings offered to users.
func Intents() []IntentSchema {
	return lo.Map(intent.Kinds(), func(k intent.Kind, _ int) IntentSchema {
		return IntentSchema{
			Name:          string(k),
			StateChanging: k.StateChanging(),
			Examples:      compose.Suggestions(k),
		}
	})
}

// BuildDocument serializes the command at commandPath. The intent catalog is
// attached only for the root command.
func BuildDocument(root *cobra.Command, commandPath string) (Document, error) {
	cmd, err := Build(root, commandPath)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Command: cmd}
	if strings.TrimSpace(commandPath) == "" {
		doc.Intents = Intents()
	}
	return doc, nil
}
