package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mkoval/faqforge/internal/engine"
)

func echoEngine() *fakeEngine {
	return &fakeEngine{
		generateFn: func(_ context.Context, prompt string, _ engine.GenerateOptions) (string, error) {
			return prompt + " canned answer", nil
		},
	}
}

func TestAsk_NoCheckpointReturnsGuidance(t *testing.T) {
	f := echoEngine()
	c := NewChat(newTestModel(f))

	got, err := c.Ask(ctx, "What are your hours?", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != MsgTrainFirst {
		t.Errorf("Ask() = %q, want %q", got, MsgTrainFirst)
	}
	if len(f.loadCalls) != 0 {
		t.Errorf("delegate Load called %d times for guidance reply, want 0", len(f.loadCalls))
	}
	if len(c.History()) != 0 {
		t.Errorf("history has %d turns after guidance reply, want 0", len(c.History()))
	}
}

func TestAsk_BlankQuestionReturnsGuidance(t *testing.T) {
	c := NewChat(newTestModel(echoEngine()))

	for _, q := range []string{"", "   ", "\n\t"} {
		got, err := c.Ask(ctx, q, "/models/a")
		if err != nil {
			t.Fatalf("Ask(%q): %v", q, err)
		}
		if got != MsgAskQuestion {
			t.Errorf("Ask(%q) = %q, want %q", q, got, MsgAskQuestion)
		}
	}
	if len(c.History()) != 0 {
		t.Errorf("history has %d turns after guidance replies, want 0", len(c.History()))
	}
}

func TestAsk_MissingCheckpointWinsOverBlankQuestion(t *testing.T) {
	c := NewChat(newTestModel(echoEngine()))

	got, err := c.Ask(ctx, "", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != MsgTrainFirst {
		t.Errorf("Ask() = %q, want %q", got, MsgTrainFirst)
	}
}

func TestAsk_RecordsTurns(t *testing.T) {
	f := &fakeEngine{
		generateFn: func(_ context.Context, prompt string, _ engine.GenerateOptions) (string, error) {
			return prompt + " It is 42.", nil
		},
	}
	c := NewChat(newTestModel(f))

	first, err := c.Ask(ctx, "What is the answer?", "/models/a")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if first != "It is 42." {
		t.Errorf("Ask() = %q, want %q", first, "It is 42.")
	}

	if _, err := c.Ask(ctx, "Are you sure?", "/models/a"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("history has %d turns, want 2", len(history))
	}
	if history[0].Question != "What is the answer?" || history[0].Answer != "It is 42." {
		t.Errorf("first turn = %+v", history[0])
	}
	if history[1].Question != "Are you sure?" {
		t.Errorf("second turn = %+v", history[1])
	}
}

func TestAsk_LoadsCheckpointLazily(t *testing.T) {
	f := echoEngine()
	c := NewChat(newTestModel(f))

	for i := 0; i < 3; i++ {
		if _, err := c.Ask(ctx, "hi", "/models/a"); err != nil {
			t.Fatalf("Ask: %v", err)
		}
	}
	if _, err := c.Ask(ctx, "hi", "/models/b"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if len(f.loadCalls) != 2 {
		t.Errorf("delegate loaded %d times (%v), want 2", len(f.loadCalls), f.loadCalls)
	}
}

func TestAsk_LoadFailureLeavesHistory(t *testing.T) {
	f := &fakeEngine{
		loadFn: func(_ context.Context, _ string) error {
			return errors.New("no such checkpoint")
		},
	}
	c := NewChat(newTestModel(f))

	if _, err := c.Ask(ctx, "hi", "/models/missing"); err == nil {
		t.Fatal("expected load error, got nil")
	}
	if len(c.History()) != 0 {
		t.Errorf("history has %d turns after failed ask, want 0", len(c.History()))
	}
}

func TestAsk_GenerateFailureLeavesHistory(t *testing.T) {
	f := &fakeEngine{
		generateFn: func(_ context.Context, _ string, _ engine.GenerateOptions) (string, error) {
			return "", errors.New("runner unavailable")
		},
	}
	c := NewChat(newTestModel(f))

	_, err := c.Ask(ctx, "hi", "/models/a")
	if err == nil {
		t.Fatal("expected generate error, got nil")
	}
	if !strings.Contains(err.Error(), "runner unavailable") {
		t.Errorf("error = %q, want delegate message preserved", err)
	}
	if len(c.History()) != 0 {
		t.Errorf("history has %d turns after failed ask, want 0", len(c.History()))
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	c := NewChat(newTestModel(echoEngine()))
	if _, err := c.Ask(ctx, "one", "/models/a"); err != nil {
		t.Fatal(err)
	}

	got := c.History()
	got[0].Answer = "tampered"

	if c.History()[0].Answer == "tampered" {
		t.Error("mutating the returned slice changed session history")
	}
}

func TestReset_ClearsHistory(t *testing.T) {
	c := NewChat(newTestModel(echoEngine()))
	if _, err := c.Ask(ctx, "one", "/models/a"); err != nil {
		t.Fatal(err)
	}

	c.Reset()

	if len(c.History()) != 0 {
		t.Errorf("history has %d turns after Reset, want 0", len(c.History()))
	}
}
