package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/faq"
)

// ErrNoExamples is returned when a run would train on an empty dataset.
var ErrNoExamples = errors.New("no training examples: FAQ text produced no pairs and the industry has no samples")

// Stage identifies a phase of a training run.
type Stage string

const (
	StageParsing   Stage = "parsing"
	StagePreparing Stage = "preparing"
	StageTraining  Stage = "training"
	StageExporting Stage = "exporting"
	StageDone      Stage = "done"
)

// StatusTemplate formats the summary shown to the user after a run.
const StatusTemplate = "Training completed! Loss: %.4f\nModel saved to: %s\nData exported to: %s"

// Event reports progress as a run advances through its stages. Step,
// MaxSteps and Loss are populated only on StageTraining events forwarded
// from the runner.
type Event struct {
	Stage    Stage   `json:"stage"`
	Message  string  `json:"message,omitempty"`
	Step     int     `json:"step,omitempty"`
	MaxSteps int     `json:"max_steps,omitempty"`
	Loss     float64 `json:"loss,omitempty"`
}

// Request describes one training run.
type Request struct {
	Name     string
	Industry string
	FAQText  string

	// Dest is the export destination; empty selects the exporter default.
	Dest string
	// OutputDir is the checkpoint directory handed to the engine.
	OutputDir string
}

// Result is the outcome of a completed run.
type Result struct {
	Loss           float64    `json:"loss"`
	CheckpointPath string     `json:"checkpoint_path"`
	ExportPath     string     `json:"export_path"`
	Examples       int        `json:"examples"`
	Status         string     `json:"status"`
	DurationMs     int64      `json:"duration_ms"`
	Pairs          []faq.Pair `json:"-"`
}

// Tuner is the fine-tuning capability a run drives. engine.Engine satisfies
// it directly; handing a chatbot's ModelSession instead serializes the run
// against that chatbot's chat traffic.
type Tuner interface {
	FineTune(ctx context.Context, examples []string, outputDir string, opts engine.TrainOptions, onProgress func(engine.TrainProgress)) (engine.TrainResult, error)
}

// Trainer orchestrates a full training run: FAQ parsing, dataset
// assembly, fine-tuning through the tuner, and data export.
type Trainer struct {
	tuner    Tuner
	builder  *dataset.Builder
	exporter *export.Exporter
	opts     engine.TrainOptions
}

// NewTrainer creates a Trainer wired to all run components.
func NewTrainer(t Tuner, b *dataset.Builder, x *export.Exporter, opts engine.TrainOptions) *Trainer {
	return &Trainer{
		tuner:    t,
		builder:  b,
		exporter: x,
		opts:     opts,
	}
}

// Run executes one training run against req:
//  1. Parse the raw FAQ text into question/answer pairs
//  2. Assemble the training dataset (custom pairs first, then industry samples)
//  3. Fine-tune through the engine, forwarding runner step progress
//  4. Export the business data as JSON
//
// Each stage emits an Event through onEvent (may be nil). The first error
// aborts the run; nothing is retried and no partial checkpoint is cleaned up.
func (t *Trainer) Run(ctx context.Context, req Request, onEvent func(Event)) (*Result, error) {
	start := time.Now()
	emit := onEvent
	if emit == nil {
		emit = func(Event) {}
	}

	// 1. Parse FAQs.
	emit(Event{Stage: StageParsing, Message: "Processing FAQs..."})
	pairs := faq.Parse(req.FAQText)
	slog.Info("faqs parsed", "business", req.Name, "pairs", len(pairs))

	// 2. Assemble the dataset.
	emit(Event{Stage: StagePreparing, Message: fmt.Sprintf("Preparing training data (%d custom pairs)...", len(pairs))})
	examples := t.builder.Build(pairs, req.Industry)
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}
	slog.Info("dataset assembled", "industry", req.Industry, "examples", len(examples))

	// 3. Fine-tune.
	emit(Event{Stage: StageTraining, Message: fmt.Sprintf("Training on %d examples...", len(examples)), MaxSteps: t.opts.MaxSteps})
	res, err := t.tuner.FineTune(ctx, dataset.Texts(examples), req.OutputDir, t.opts, func(p engine.TrainProgress) {
		emit(Event{Stage: StageTraining, Step: p.Step, MaxSteps: p.MaxSteps, Loss: p.Loss})
	})
	if err != nil {
		return nil, fmt.Errorf("fine-tuning: %w", err)
	}
	slog.Info("fine-tuning complete", "loss", res.Loss, "checkpoint", res.OutputDir)

	// 4. Export.
	emit(Event{Stage: StageExporting, Message: "Exporting chatbot data..."})
	exportPath, err := t.exporter.Export(export.Business{Name: req.Name, Industry: req.Industry}, pairs, req.Dest)
	if err != nil {
		return nil, fmt.Errorf("exporting chatbot data: %w", err)
	}

	out := &Result{
		Loss:           res.Loss,
		CheckpointPath: res.OutputDir,
		ExportPath:     exportPath,
		Examples:       len(examples),
		Status:         fmt.Sprintf(StatusTemplate, res.Loss, res.OutputDir, exportPath),
		DurationMs:     time.Since(start).Milliseconds(),
		Pairs:          pairs,
	}
	emit(Event{Stage: StageDone, Message: out.Status})

	slog.Debug("training run complete",
		"business", req.Name,
		"examples", out.Examples,
		"duration_ms", out.DurationMs,
	)
	return out, nil
}
