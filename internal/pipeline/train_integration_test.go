//go:build integration

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
)

// setupIntegrationTrainer wires a Trainer against a live model runner.
// The step cap is kept tiny so the round-trip stays in CI territory.
func setupIntegrationTrainer(t *testing.T) (*Trainer, string) {
	t.Helper()

	eng := engine.NewRunnerEngine("http://localhost:8901")
	if !eng.IsRunning(context.Background()) {
		t.Skip("model runner is not running, skipping integration test")
	}

	dir := t.TempDir()
	b := dataset.New(catalog.Default())
	x := export.New(dir)
	opts := engine.TrainOptions{
		NumEpochs:    1,
		BatchSize:    2,
		LearningRate: 1e-4,
		MaxLength:    128,
		MaxSteps:     2,
	}
	return NewTrainer(eng, b, x, opts), dir
}

func TestRunEndToEnd_TrainAndGenerate(t *testing.T) {
	tr, dir := setupIntegrationTrainer(t)
	outputDir := filepath.Join(dir, "models", "fine_tuned")

	var steps int
	start := time.Now()
	res, err := tr.Run(context.Background(), Request{
		Name:      "Integration Bakery",
		Industry:  "restaurant",
		FAQText:   "Q: Do you sell bread? A: Yes, baked fresh daily.",
		OutputDir: outputDir,
	}, func(ev Event) {
		if ev.Stage == StageTraining && ev.Step > 0 {
			steps++
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	t.Logf("training took %v, loss %.4f, %d step updates", time.Since(start), res.Loss, steps)

	if steps == 0 {
		t.Error("expected at least one step update from the runner")
	}
	if res.CheckpointPath != outputDir {
		t.Errorf("CheckpointPath = %q, want %q", res.CheckpointPath, outputDir)
	}
	if _, err := os.Stat(res.ExportPath); err != nil {
		t.Errorf("stat export: %v", err)
	}
}
