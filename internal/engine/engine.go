package engine

import "context"

// Engine abstracts the external text-completion capability this system
// orchestrates: fine-tuning, checkpoint loading, and generation. Consumers
// such as the model session and the training pipeline use this interface
// instead of depending on a concrete runner client.
type Engine interface {
	// FineTune trains the base model on the example texts and writes a
	// checkpoint to outputDir. The optional callback receives progress
	// updates. Returns the final training loss and the checkpoint path.
	FineTune(ctx context.Context, examples []string, outputDir string, opts TrainOptions, onProgress func(TrainProgress)) (TrainResult, error)

	// Generate samples a completion for the prompt from whatever model the
	// backend currently serves.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Load replaces the served model with the checkpoint at path.
	Load(ctx context.Context, path string) error

	// IsRunning reports whether the completion backend is reachable.
	IsRunning(ctx context.Context) bool

	// Info returns the backend's base model, device, and loaded checkpoint.
	Info(ctx context.Context) (Info, error)
}
