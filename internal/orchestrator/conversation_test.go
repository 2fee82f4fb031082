package orchestrator

import (
	"strings"
	"testing"
)

func TestNewConversationIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newConversationID()
		if !strings.HasPrefix(id, "conv-") || len(id) != len("conv-")+8 {
			t.Fatalf("unexpected ID shape %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestContextFreshConversation(t *testing.T) {
	c := &conversation{id: "conv-1"}
	if got := c.context(); got != freshContext {
		t.Fatalf("expected fresh-conversation preamble, got %q", got)
	}
}

func TestContextReplaysLastExchangeOnly(t *testing.T) {
	c := &conversation{id: "conv-1"}
	c.append("any good reds?", "yes, several", "recommendations")
	c.append("under $30?", "three fit that budget", "recommendations")

	ctx := c.context()
	if strings.Contains(ctx, "any good reds?") {
		t.Fatalf("older turns must not appear, got %q", ctx)
	}
	if !strings.Contains(ctx, "User: under $30?") || !strings.Contains(ctx, "Assistant: three fit that budget") {
		t.Fatalf("last exchange missing from context: %q", ctx)
	}
}

func TestContextTruncatesLongTurns(t *testing.T) {
	c := &conversation{id: "conv-1"}
	long := strings.Repeat("a", 300)
	c.append("short question", long, "sommelier")

	ctx := c.context()
	if len(ctx) > contextBudget {
		t.Fatalf("context exceeds byte budget: %d bytes", len(ctx))
	}
	if !strings.Contains(ctx, "...") {
		t.Fatalf("long turn should be truncated, got %q", ctx)
	}
}

func TestContextNeverExceedsBudget(t *testing.T) {
	c := &conversation{id: "conv-1"}
	c.append(strings.Repeat("q", maxTurnLen*3), strings.Repeat("a", maxTurnLen*3), "sommelier")

	ctx := c.context()
	if len(ctx) > contextBudget {
		t.Fatalf("context exceeds byte budget: %d bytes", len(ctx))
	}
}
