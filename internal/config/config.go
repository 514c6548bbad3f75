package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Runner   RunnerConfig
	Storage  StorageConfig
	Train    TrainConfig
	Generate GenerateConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
	// APIToken guards the HTTP API when set. Empty means unauthenticated,
	// the default for a local tool.
	APIToken string
}

type RunnerConfig struct {
	BaseURL   string
	BaseModel string
}

type StorageConfig struct {
	DataDir string
}

// TrainConfig is the fine-tuning hyperparameter set, read once at startup.
type TrainConfig struct {
	Epochs         int
	BatchSize      int
	LearningRate   float64
	WarmupSteps    int
	MaxGradNorm    float64
	MaxLength      int
	GradAccumSteps int
	MaxSteps       int
}

// GenerateConfig is the sampling parameter set, read once at startup.
type GenerateConfig struct {
	MaxLength     int
	NumBeams      int
	Temperature   float64
	TopK          int
	TopP          float64
	NoRepeatNgram int
}

type CatalogConfig struct {
	// Path points at an operator-supplied industry catalog JSON file.
	// Empty selects the built-in catalog.
	Path string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port:    4200,
			MCPPort: 4201,
		},
		Runner: RunnerConfig{
			BaseURL:   "http://localhost:8901",
			BaseModel: "distilgpt2",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Train: TrainConfig{
			Epochs:         1,
			BatchSize:      2,
			LearningRate:   1e-4,
			WarmupSteps:    10,
			MaxGradNorm:    1.0,
			MaxLength:      128,
			GradAccumSteps: 4,
			MaxSteps:       50,
		},
		Generate: GenerateConfig{
			MaxLength:     128,
			NumBeams:      2,
			Temperature:   0.7,
			TopK:          50,
			TopP:          0.9,
			NoRepeatNgram: 2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.faqforge.app) and the API
// token falls back to macOS Keychain. On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/faqforge/config.json and the token falls back to a secrets
// file under the data directory.
//
// Environment variables (FAQFORGE_*) override backend values on all
// platforms. The API token is optional: when it stays empty the HTTP API runs
// unauthenticated.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the API token if still empty.
	if cfg.Server.APIToken == "" {
		if token, err := kc.Get("faqforge", "api_token"); err == nil && token != "" {
			cfg.Server.APIToken = token
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects values no deployment can run with. Malformed backend
// values already fell back to defaults with a warning; this catches values
// that parsed fine but make no sense.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MCPPort <= 0 || c.Server.MCPPort > 65535 {
		return fmt.Errorf("invalid server.mcp_port %d", c.Server.MCPPort)
	}
	if c.Train.Epochs <= 0 {
		return fmt.Errorf("invalid train.epochs %d", c.Train.Epochs)
	}
	if c.Train.BatchSize <= 0 {
		return fmt.Errorf("invalid train.batch_size %d", c.Train.BatchSize)
	}
	if c.Train.MaxLength <= 0 {
		return fmt.Errorf("invalid train.max_length %d", c.Train.MaxLength)
	}
	if c.Train.MaxSteps <= 0 {
		return fmt.Errorf("invalid train.max_steps %d", c.Train.MaxSteps)
	}
	if c.Train.GradAccumSteps <= 0 {
		return fmt.Errorf("invalid train.grad_accum_steps %d", c.Train.GradAccumSteps)
	}
	if c.Generate.MaxLength <= 0 {
		return fmt.Errorf("invalid generate.max_length %d", c.Generate.MaxLength)
	}
	if c.Generate.NumBeams <= 0 {
		return fmt.Errorf("invalid generate.num_beams %d", c.Generate.NumBeams)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
