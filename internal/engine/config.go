package engine

import "github.com/mkoval/faqforge/internal/config"

// TrainOptionsFromConfig maps configured training hyperparameters onto the
// engine's option set.
func TrainOptionsFromConfig(c config.TrainConfig) TrainOptions {
	return TrainOptions{
		NumEpochs:      c.Epochs,
		BatchSize:      c.BatchSize,
		LearningRate:   c.LearningRate,
		WarmupSteps:    c.WarmupSteps,
		MaxGradNorm:    c.MaxGradNorm,
		MaxLength:      c.MaxLength,
		GradAccumSteps: c.GradAccumSteps,
		MaxSteps:       c.MaxSteps,
	}
}

// GenerateOptionsFromConfig maps configured sampling parameters onto the
// engine's option set.
func GenerateOptionsFromConfig(c config.GenerateConfig) GenerateOptions {
	return GenerateOptions{
		MaxLength:     c.MaxLength,
		NumBeams:      c.NumBeams,
		Temperature:   c.Temperature,
		TopK:          c.TopK,
		TopP:          c.TopP,
		NoRepeatNgram: c.NoRepeatNgram,
	}
}
