package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/faq"
)

// ErrNotLoaded is returned by Generate before any checkpoint has been loaded.
// Surfaces translate it into the "train first" guidance instead of an error.
var ErrNotLoaded = errors.New("no checkpoint loaded")

// ModelSession owns the loaded-checkpoint identity for one chatbot and
// serializes every model operation against it. The session has two states,
// unloaded (initial) and loaded with a checkpoint path; Load is the only
// transition. One ModelSession exists per chatbot lineage, never shared
// across businesses.
type ModelSession struct {
	engine    engine.Engine
	outputDir string
	trainOpts engine.TrainOptions
	genOpts   engine.GenerateOptions

	mu     sync.Mutex
	loaded string // checkpoint path, "" while unloaded
}

// NewModel creates an unloaded ModelSession. outputDir is where Train writes
// its checkpoint; the option sets come from configuration and stay fixed for
// the session's lifetime.
func NewModel(e engine.Engine, outputDir string, trainOpts engine.TrainOptions, genOpts engine.GenerateOptions) *ModelSession {
	return &ModelSession{
		engine:    e,
		outputDir: outputDir,
		trainOpts: trainOpts,
		genOpts:   genOpts,
	}
}

// Train fine-tunes the base model on the example texts and returns the final
// loss and the checkpoint directory written. Training does not change the
// loaded state; callers decide when to switch to the fresh checkpoint via
// Load. Delegate errors propagate wrapped, with no retry and no cleanup of a
// partial checkpoint. Blocks for the duration of the run, which can be
// minutes.
func (s *ModelSession) Train(ctx context.Context, examples []string, onProgress func(engine.TrainProgress)) (float64, string, error) {
	res, err := s.FineTune(ctx, examples, s.outputDir, s.trainOpts, onProgress)
	if err != nil {
		return 0, "", fmt.Errorf("fine-tuning: %w", err)
	}
	return res.Loss, res.OutputDir, nil
}

// FineTune runs one fine-tuning job through this session while holding the
// session mutex, so a training run serializes with Load and Generate against
// the same chatbot. The caller supplies the output directory and options,
// which makes a ModelSession usable wherever a pipeline tuner is expected.
func (s *ModelSession) FineTune(ctx context.Context, examples []string, outputDir string, opts engine.TrainOptions, onProgress func(engine.TrainProgress)) (engine.TrainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.FineTune(ctx, examples, outputDir, opts, onProgress)
}

// Load transitions the session to the checkpoint at path, replacing whatever
// was previously held. Loading is a guarded no-op when the same path is
// already active, so repeated chat calls against one checkpoint never re-read
// it from disk.
func (s *ModelSession) Load(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("checkpoint path is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded == path {
		return nil
	}
	if err := s.engine.Load(ctx, path); err != nil {
		return fmt.Errorf("loading checkpoint %s: %w", path, err)
	}
	s.loaded = path
	return nil
}

// Generate samples an answer for the prompt from the loaded checkpoint,
// returning ErrNotLoaded while the session is unloaded. The prompt is sent
// with a trailing separator so the model continues with an answer, and the
// decoded text is reduced to the portion after the last separator. When the
// model emits no separator the whole trimmed text comes back, which can
// include the echoed prompt; the format offers no reliable marker to do
// better.
func (s *ModelSession) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded == "" {
		return "", ErrNotLoaded
	}

	text, err := s.engine.Generate(ctx, prompt+" "+faq.Separator, s.genOpts)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return faq.AfterLastSeparator(text), nil
}

// Checkpoint reports the currently loaded checkpoint path, or "" while the
// session is unloaded.
func (s *ModelSession) Checkpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// OutputDir reports the checkpoint directory Train writes to.
func (s *ModelSession) OutputDir() string {
	return s.outputDir
}
