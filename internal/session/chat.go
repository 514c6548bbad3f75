package session

import (
	"context"
	"strings"
	"sync"
)

// Guidance messages for precondition failures. They are answers, not errors:
// surfaces render them in the normal chat flow.
const (
	MsgTrainFirst  = "Please train the chatbot first!"
	MsgAskQuestion = "Please ask a question!"
)

// Turn is one question/answer exchange in a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ChatSession owns one conversation's ordered history against a ModelSession.
// History grows monotonically and is never truncated automatically; Reset is
// the only way to clear it.
type ChatSession struct {
	model *ModelSession

	mu      sync.Mutex
	history []Turn
}

// NewChat creates an empty conversation against the given model session.
func NewChat(model *ModelSession) *ChatSession {
	return &ChatSession{model: model}
}

// Ask answers a question from the checkpoint at checkpointPath.
//
// Preconditions are checked in order: an empty checkpointPath returns the
// train-first guidance, then a blank question returns the ask-a-question
// guidance; both leave history unchanged and report a nil error. Otherwise
// the model session is loaded against checkpointPath (a no-op when it already
// is), the answer is generated, and the new turn is appended to history.
// Delegate failures leave history unchanged and propagate as errors for the
// surface to render as "Error: <message>".
func (c *ChatSession) Ask(ctx context.Context, question, checkpointPath string) (string, error) {
	if checkpointPath == "" {
		return MsgTrainFirst, nil
	}
	if strings.TrimSpace(question) == "" {
		return MsgAskQuestion, nil
	}

	if err := c.model.Load(ctx, checkpointPath); err != nil {
		return "", err
	}

	answer, err := c.model.Generate(ctx, question)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.history = append(c.history, Turn{Question: question, Answer: answer})
	c.mu.Unlock()

	return answer, nil
}

// History returns a copy of the conversation so far, oldest turn first.
func (c *ChatSession) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.history))
	copy(out, c.history)
	return out
}

// Reset clears the conversation history.
func (c *ChatSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// Model returns the model session this conversation chats against.
func (c *ChatSession) Model() *ModelSession {
	return c.model
}
