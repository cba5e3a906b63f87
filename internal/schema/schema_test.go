package schema

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/seichat/internal/intent"
)

func TestBuildSchema(t *testing.T) {
	root := &cobra.Command{Use: "seichat"}
	child := &cobra.Command{Use: "todo", Short: "todo cmds", Aliases: []string{"todos"}}
	leaf := &cobra.Command{Use: "add", Short: "add a todo"}
	leaf.Flags().Bool("done", false, "mark as done")
	child.AddCommand(leaf)
	root.AddCommand(child)

	s, err := Build(root, "todos add")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Path != "seichat todo add" {
		t.Fatalf("unexpected path: %s", s.Path)
	}
	if len(s.Flags) != 1 || s.Flags[0].Name != "done" {
		t.Fatalf("unexpected flags: %+v", s.Flags)
	}
	if _, err := Build(root, "nope"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestBuildDocumentIncludesIntentsAtRoot(t *testing.T) {
	root := &cobra.Command{Use: "seichat"}
	root.AddCommand(&cobra.Command{Use: "ask"})

	doc, err := BuildDocument(root, "")
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if len(doc.Intents) != len(intent.Kinds()) {
		t.Fatalf("expected %d intents, got %d", len(intent.Kinds()), len(doc.Intents))
	}
	var swap *IntentSchema
	for i := range doc.Intents {
		if doc.Intents[i].Name == string(intent.SymphonySwap) {
			swap = &doc.Intents[i]
		}
	}
	if swap == nil || !swap.StateChanging {
		t.Fatalf("swap should be listed as state changing: %+v", swap)
	}

	sub, err := BuildDocument(root, "ask")
	if err != nil {
		t.Fatalf("BuildDocument failed: %v", err)
	}
	if len(sub.Intents) != 0 {
		t.Fatal("subcommand documents should not repeat the intent catalog")
	}
}
