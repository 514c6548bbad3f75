package engine

// DetectConfig holds parameters for backend detection.
type DetectConfig struct {
	RunnerBaseURL string
}

// Detect probes available completion backends and returns the best one.
// Currently always returns a RunnerEngine; future: probe for an
// OpenAI-compatible server that exposes fine-tuning and prefer it when
// reachable.
func Detect(cfg DetectConfig) (Engine, error) {
	return NewRunnerEngine(cfg.RunnerBaseURL), nil
}
