package engine

import (
	"context"

	"github.com/mkoval/faqforge/internal/runner"
)

// RunnerEngine adapts the internal/runner.Client to the Engine interface.
type RunnerEngine struct {
	client *runner.Client
}

// NewRunnerEngine creates a RunnerEngine backed by a model runner at baseURL.
func NewRunnerEngine(baseURL string) *RunnerEngine {
	return &RunnerEngine{client: runner.New(baseURL)}
}

func (e *RunnerEngine) FineTune(ctx context.Context, examples []string, outputDir string, opts TrainOptions, onProgress func(TrainProgress)) (TrainResult, error) {
	var cb func(runner.TrainProgress)
	if onProgress != nil {
		cb = func(p runner.TrainProgress) {
			onProgress(TrainProgress{
				Status:   p.Status,
				Step:     p.Step,
				MaxSteps: p.MaxSteps,
				Loss:     p.Loss,
			})
		}
	}

	loss, dir, err := e.client.FineTune(ctx, examples, outputDir, runner.TrainOptions{
		NumEpochs:      opts.NumEpochs,
		BatchSize:      opts.BatchSize,
		LearningRate:   opts.LearningRate,
		WarmupSteps:    opts.WarmupSteps,
		MaxGradNorm:    opts.MaxGradNorm,
		MaxLength:      opts.MaxLength,
		GradAccumSteps: opts.GradAccumSteps,
		MaxSteps:       opts.MaxSteps,
	}, cb)
	if err != nil {
		return TrainResult{}, err
	}
	return TrainResult{Loss: loss, OutputDir: dir}, nil
}

func (e *RunnerEngine) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return e.client.Generate(ctx, prompt, runner.GenerateOptions{
		MaxLength:     opts.MaxLength,
		NumBeams:      opts.NumBeams,
		Temperature:   opts.Temperature,
		TopK:          opts.TopK,
		TopP:          opts.TopP,
		NoRepeatNgram: opts.NoRepeatNgram,
	})
}

func (e *RunnerEngine) Load(ctx context.Context, path string) error {
	return e.client.Load(ctx, path)
}

func (e *RunnerEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *RunnerEngine) Info(ctx context.Context) (Info, error) {
	info, err := e.client.Info(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		BaseModel:        info.BaseModel,
		Device:           info.Device,
		LoadedCheckpoint: info.LoadedCheckpoint,
	}, nil
}
