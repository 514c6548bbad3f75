package engine

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

type mockEngine struct {
	isRunning bool
	info      Info
	infoErr   error
}

func (m *mockEngine) FineTune(_ context.Context, _ []string, _ string, _ TrainOptions, _ func(TrainProgress)) (TrainResult, error) {
	return TrainResult{}, nil
}
func (m *mockEngine) Generate(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	return "", nil
}
func (m *mockEngine) Load(_ context.Context, _ string) error { return nil }
func (m *mockEngine) IsRunning(_ context.Context) bool        { return m.isRunning }
func (m *mockEngine) Info(_ context.Context) (Info, error)    { return m.info, m.infoErr }

func TestEnsureReady_ReportsModel(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		info:      Info{BaseModel: "distilgpt2", Device: "cpu"},
	}

	var buf bytes.Buffer
	if err := EnsureReady(context.Background(), m, "distilgpt2", &buf); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	if !strings.Contains(buf.String(), "distilgpt2 on cpu") {
		t.Errorf("output = %q, want it to report the runner model", buf.String())
	}
	if strings.Contains(buf.String(), "warning") {
		t.Errorf("output = %q, want no warning for matching base model", buf.String())
	}
}

func TestEnsureReady_WarnsOnModelMismatch(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		info:      Info{BaseModel: "gpt2", Device: "cpu"},
	}

	var buf bytes.Buffer
	if err := EnsureReady(context.Background(), m, "distilgpt2", &buf); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	if !strings.Contains(buf.String(), "warning") {
		t.Errorf("output = %q, want a base-model mismatch warning", buf.String())
	}
}

func TestEnsureReady_ReportsLoadedCheckpoint(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		info:      Info{BaseModel: "distilgpt2", Device: "mps", LoadedCheckpoint: "/models/fine_tuned"},
	}

	var buf bytes.Buffer
	if err := EnsureReady(context.Background(), m, "distilgpt2", &buf); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	if !strings.Contains(buf.String(), "/models/fine_tuned") {
		t.Errorf("output = %q, want the loaded checkpoint path", buf.String())
	}
}

func TestEnsureReady_RunnerDown(t *testing.T) {
	m := &mockEngine{isRunning: false}

	err := EnsureReady(context.Background(), m, "distilgpt2", io.Discard)
	if err == nil {
		t.Fatal("expected error when the runner is down")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("error = %q, want it to say the runner is not running", err)
	}
}
