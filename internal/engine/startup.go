package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that the completion backend is reachable and reports its
// model state to w. baseModel is the model the runner is expected to serve; a
// mismatch is reported as a warning, not an error, since any causal LM works
// with the same orchestration. Checkpoints are produced locally by training,
// so there is nothing to download here.
func EnsureReady(ctx context.Context, e Engine, baseModel string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("model runner is not running; start it with: faqforge-runner serve")
	}

	info, err := e.Info(ctx)
	if err != nil {
		return fmt.Errorf("querying runner info: %w", err)
	}

	fmt.Fprintf(w, "runner: %s on %s\n", info.BaseModel, info.Device)
	if baseModel != "" && info.BaseModel != baseModel {
		fmt.Fprintf(w, "warning: runner serves %s, configured base model is %s\n", info.BaseModel, baseModel)
	}
	if info.LoadedCheckpoint != "" {
		fmt.Fprintf(w, "checkpoint loaded: %s\n", info.LoadedCheckpoint)
	}

	return nil
}
