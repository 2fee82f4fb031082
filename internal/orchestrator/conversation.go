package orchestrator

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

const (
	// maxTurnLen caps each replayed message inside the context window.
	maxTurnLen = 100
	// contextBudget is the byte allowance for the replayed context,
	// held under the backend's 512-byte prompt-context limit.
	contextBudget = 450

	baseContext    = "You are a knowledgeable sommelier assistant."
	freshContext   = baseContext + " This is the start of a new conversation."
	minimalContext = baseContext + " Continue the conversation naturally based on previous messages about wine."
)

// turn is one message in a conversation.
type turn struct {
	role    string
	content string
}

// conversation tracks one logical session: its turn history, the
// prompt last used to answer (which seeds follow-up routing), and its
// last activity for idle eviction.
type conversation struct {
	id           string
	turns        []turn
	lastPromptID string
	lastActive   time.Time
}

// newConversationID mints a short session identifier.
func newConversationID() string {
	return "conv-" + uuid.NewString()[:8]
}

// append records one completed exchange.
func (c *conversation) append(userText, answerText, promptID string) {
	c.turns = append(c.turns,
		turn{role: roleUser, content: userText},
		turn{role: roleAssistant, content: answerText},
	)
	c.lastPromptID = promptID
}

// context builds the prior-turn window for the generation request:
// the last exchange with per-message truncation, falling back to a
// minimal preamble when even that would blow the byte budget.
func (c *conversation) context() string {
	if len(c.turns) == 0 {
		return freshContext
	}

	var b strings.Builder
	b.WriteString(baseContext)
	b.WriteString(" Continue the conversation naturally.")

	recent := c.turns
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	for _, t := range recent {
		content := t.content
		if len(content) > maxTurnLen {
			content = content[:maxTurnLen-3] + "..."
		}
		b.WriteString("\n")
		b.WriteString(capitalize(t.role))
		b.WriteString(": ")
		b.WriteString(content)
	}

	out := b.String()
	if len(out) > contextBudget {
		return minimalContext
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
