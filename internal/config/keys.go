package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FAQFORGE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "FAQFORGE_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.api_token", typ: kString, env: "FAQFORGE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "runner.base_url", typ: kString, env: "FAQFORGE_RUNNER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Runner.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Runner.BaseURL },
	},
	{
		key: "runner.base_model", typ: kString, env: "FAQFORGE_RUNNER_BASE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Runner.BaseModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Runner.BaseModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FAQFORGE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "train.epochs", typ: kInt, env: "FAQFORGE_TRAIN_EPOCHS",
		apply:   func(cfg *Config, v any) { cfg.Train.Epochs = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.Epochs },
	},
	{
		key: "train.batch_size", typ: kInt, env: "FAQFORGE_TRAIN_BATCH_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Train.BatchSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.BatchSize },
	},
	{
		key: "train.learning_rate", typ: kFloat, env: "FAQFORGE_TRAIN_LEARNING_RATE",
		apply:   func(cfg *Config, v any) { cfg.Train.LearningRate = v.(float64) },
		extract: func(cfg Config) any { return cfg.Train.LearningRate },
	},
	{
		key: "train.warmup_steps", typ: kInt, env: "FAQFORGE_TRAIN_WARMUP_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Train.WarmupSteps = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.WarmupSteps },
	},
	{
		key: "train.max_grad_norm", typ: kFloat, env: "FAQFORGE_TRAIN_MAX_GRAD_NORM",
		apply:   func(cfg *Config, v any) { cfg.Train.MaxGradNorm = v.(float64) },
		extract: func(cfg Config) any { return cfg.Train.MaxGradNorm },
	},
	{
		key: "train.max_length", typ: kInt, env: "FAQFORGE_TRAIN_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Train.MaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.MaxLength },
	},
	{
		key: "train.grad_accum_steps", typ: kInt, env: "FAQFORGE_TRAIN_GRAD_ACCUM_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Train.GradAccumSteps = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.GradAccumSteps },
	},
	{
		key: "train.max_steps", typ: kInt, env: "FAQFORGE_TRAIN_MAX_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Train.MaxSteps = v.(int) },
		extract: func(cfg Config) any { return cfg.Train.MaxSteps },
	},
	{
		key: "generate.max_length", typ: kInt, env: "FAQFORGE_GENERATE_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Generate.MaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.MaxLength },
	},
	{
		key: "generate.num_beams", typ: kInt, env: "FAQFORGE_GENERATE_NUM_BEAMS",
		apply:   func(cfg *Config, v any) { cfg.Generate.NumBeams = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.NumBeams },
	},
	{
		key: "generate.temperature", typ: kFloat, env: "FAQFORGE_GENERATE_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generate.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generate.Temperature },
	},
	{
		key: "generate.top_k", typ: kInt, env: "FAQFORGE_GENERATE_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Generate.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.TopK },
	},
	{
		key: "generate.top_p", typ: kFloat, env: "FAQFORGE_GENERATE_TOP_P",
		apply:   func(cfg *Config, v any) { cfg.Generate.TopP = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generate.TopP },
	},
	{
		key: "generate.no_repeat_ngram", typ: kInt, env: "FAQFORGE_GENERATE_NO_REPEAT_NGRAM",
		apply:   func(cfg *Config, v any) { cfg.Generate.NoRepeatNgram = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.NoRepeatNgram },
	},
	{
		key: "catalog.path", typ: kString, env: "FAQFORGE_CATALOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.Path },
	},
	{
		key: "log.level", typ: kString, env: "FAQFORGE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
