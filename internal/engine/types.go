package engine

// TrainOptions is the hyperparameter set for one fine-tuning run. Values are
// fixed at process start from configuration; the engine passes them through
// unchanged.
type TrainOptions struct {
	NumEpochs      int
	BatchSize      int
	LearningRate   float64
	WarmupSteps    int
	MaxGradNorm    float64
	MaxLength      int
	GradAccumSteps int
	MaxSteps       int
}

// GenerateOptions is the sampling configuration for one generation call.
type GenerateOptions struct {
	MaxLength     int
	NumBeams      int
	Temperature   float64
	TopK          int
	TopP          float64
	NoRepeatNgram int
}

// TrainProgress reports fine-tuning progress.
type TrainProgress struct {
	Status   string  `json:"status"`
	Step     int     `json:"step,omitempty"`
	MaxSteps int     `json:"max_steps,omitempty"`
	Loss     float64 `json:"loss,omitempty"`
}

// TrainResult is the outcome of a completed fine-tuning run.
type TrainResult struct {
	Loss      float64 `json:"loss"`
	OutputDir string  `json:"output_dir"`
}

// Info describes the backend's current model state.
type Info struct {
	BaseModel        string `json:"base_model"`
	Device           string `json:"device"`
	LoadedCheckpoint string `json:"loaded_checkpoint,omitempty"`
}
