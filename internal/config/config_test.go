package config

import (
	"errors"
	"strings"
	"testing"
)

// fakeBackend is an in-memory ConfigBackend for tests.
type fakeBackend struct {
	strs map[string]string
	ints map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{strs: make(map[string]string), ints: make(map[string]int)}
}

func (b *fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strs[key]
	return v, ok, nil
}

func (b *fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *fakeBackend) SetString(key, val string) error {
	b.strs[key] = val
	return nil
}

func (b *fakeBackend) SetInt(key string, val int) error {
	b.ints[key] = val
	return nil
}

func (b *fakeBackend) Delete(key string) error {
	delete(b.strs, key)
	delete(b.ints, key)
	return nil
}

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func TestDefaults(t *testing.T) {
	t.Setenv("FAQFORGE_API_TOKEN", "")

	cfg, err := loadWith(newFakeBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want 4200", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4201 {
		t.Errorf("Server.MCPPort = %d, want 4201", cfg.Server.MCPPort)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("Server.APIToken = %q, want empty", cfg.Server.APIToken)
	}
	if cfg.Runner.BaseURL != "http://localhost:8901" {
		t.Errorf("Runner.BaseURL = %q, want %q", cfg.Runner.BaseURL, "http://localhost:8901")
	}
	if cfg.Runner.BaseModel != "distilgpt2" {
		t.Errorf("Runner.BaseModel = %q, want %q", cfg.Runner.BaseModel, "distilgpt2")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Train.Epochs != 1 {
		t.Errorf("Train.Epochs = %d, want 1", cfg.Train.Epochs)
	}
	if cfg.Train.BatchSize != 2 {
		t.Errorf("Train.BatchSize = %d, want 2", cfg.Train.BatchSize)
	}
	if cfg.Train.LearningRate != 1e-4 {
		t.Errorf("Train.LearningRate = %v, want 1e-4", cfg.Train.LearningRate)
	}
	if cfg.Train.WarmupSteps != 10 {
		t.Errorf("Train.WarmupSteps = %d, want 10", cfg.Train.WarmupSteps)
	}
	if cfg.Train.MaxGradNorm != 1.0 {
		t.Errorf("Train.MaxGradNorm = %v, want 1.0", cfg.Train.MaxGradNorm)
	}
	if cfg.Train.MaxLength != 128 {
		t.Errorf("Train.MaxLength = %d, want 128", cfg.Train.MaxLength)
	}
	if cfg.Train.GradAccumSteps != 4 {
		t.Errorf("Train.GradAccumSteps = %d, want 4", cfg.Train.GradAccumSteps)
	}
	if cfg.Train.MaxSteps != 50 {
		t.Errorf("Train.MaxSteps = %d, want 50", cfg.Train.MaxSteps)
	}
	if cfg.Generate.MaxLength != 128 {
		t.Errorf("Generate.MaxLength = %d, want 128", cfg.Generate.MaxLength)
	}
	if cfg.Generate.NumBeams != 2 {
		t.Errorf("Generate.NumBeams = %d, want 2", cfg.Generate.NumBeams)
	}
	if cfg.Generate.Temperature != 0.7 {
		t.Errorf("Generate.Temperature = %v, want 0.7", cfg.Generate.Temperature)
	}
	if cfg.Generate.TopK != 50 {
		t.Errorf("Generate.TopK = %d, want 50", cfg.Generate.TopK)
	}
	if cfg.Generate.TopP != 0.9 {
		t.Errorf("Generate.TopP = %v, want 0.9", cfg.Generate.TopP)
	}
	if cfg.Generate.NoRepeatNgram != 2 {
		t.Errorf("Generate.NoRepeatNgram = %d, want 2", cfg.Generate.NoRepeatNgram)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendValues(t *testing.T) {
	t.Setenv("FAQFORGE_API_TOKEN", "")

	b := newFakeBackend()
	b.ints["server.port"] = 5200
	b.strs["runner.base_model"] = "gpt2"
	b.strs["train.learning_rate"] = "5e-05"
	b.strs["generate.temperature"] = "0.3"
	b.ints["generate.top_k"] = 10

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5200 {
		t.Errorf("Server.Port = %d, want 5200", cfg.Server.Port)
	}
	if cfg.Runner.BaseModel != "gpt2" {
		t.Errorf("Runner.BaseModel = %q, want %q", cfg.Runner.BaseModel, "gpt2")
	}
	if cfg.Train.LearningRate != 5e-05 {
		t.Errorf("Train.LearningRate = %v, want 5e-05", cfg.Train.LearningRate)
	}
	if cfg.Generate.Temperature != 0.3 {
		t.Errorf("Generate.Temperature = %v, want 0.3", cfg.Generate.Temperature)
	}
	if cfg.Generate.TopK != 10 {
		t.Errorf("Generate.TopK = %d, want 10", cfg.Generate.TopK)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newFakeBackend()
	b.ints["server.port"] = 5200

	t.Setenv("FAQFORGE_API_TOKEN", "")
	t.Setenv("FAQFORGE_SERVER_PORT", "6200")
	t.Setenv("FAQFORGE_GENERATE_TOP_P", "0.5")

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6200 {
		t.Errorf("Server.Port = %d, want 6200", cfg.Server.Port)
	}
	if cfg.Generate.TopP != 0.5 {
		t.Errorf("Generate.TopP = %v, want 0.5", cfg.Generate.TopP)
	}
}

func TestAPIToken(t *testing.T) {
	t.Run("env wins over keychain", func(t *testing.T) {
		t.Setenv("FAQFORGE_API_TOKEN", "env-token")

		cfg, err := loadWith(newFakeBackend(), mockKeychain{value: "kc-token"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.APIToken != "env-token" {
			t.Errorf("APIToken = %q, want %q", cfg.Server.APIToken, "env-token")
		}
	})

	t.Run("keychain fallback", func(t *testing.T) {
		t.Setenv("FAQFORGE_API_TOKEN", "")

		cfg, err := loadWith(newFakeBackend(), mockKeychain{value: "kc-token"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.APIToken != "kc-token" {
			t.Errorf("APIToken = %q, want %q", cfg.Server.APIToken, "kc-token")
		}
	})

	t.Run("missing token is not an error", func(t *testing.T) {
		t.Setenv("FAQFORGE_API_TOKEN", "")

		cfg, err := loadWith(newFakeBackend(), mockKeychain{err: errors.New("no keychain")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.APIToken != "" {
			t.Errorf("APIToken = %q, want empty", cfg.Server.APIToken)
		}
	})
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("FAQFORGE_API_TOKEN", "")
	t.Setenv("FAQFORGE_TRAIN_EPOCHS", "two")

	b := newFakeBackend()
	b.strs["train.learning_rate"] = "not-a-number"

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Train.LearningRate != 1e-4 {
		t.Errorf("Train.LearningRate = %v, want default 1e-4", cfg.Train.LearningRate)
	}
	if cfg.Train.Epochs != 1 {
		t.Errorf("Train.Epochs = %d, want default 1", cfg.Train.Epochs)
	}
}

func TestValidate(t *testing.T) {
	if err := defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero mcp port", func(c *Config) { c.Server.MCPPort = 0 }, "server.mcp_port"},
		{"zero epochs", func(c *Config) { c.Train.Epochs = 0 }, "train.epochs"},
		{"zero batch size", func(c *Config) { c.Train.BatchSize = 0 }, "train.batch_size"},
		{"zero max steps", func(c *Config) { c.Train.MaxSteps = 0 }, "train.max_steps"},
		{"zero beams", func(c *Config) { c.Generate.NumBeams = 0 }, "generate.num_beams"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestShowAllExcludesSecrets(t *testing.T) {
	entries := ShowAll(defaults())

	var foundPort bool
	for _, e := range entries {
		if e.Key == "server.api_token" {
			t.Error("ShowAll exposed server.api_token")
		}
		if e.Key == "server.port" {
			foundPort = true
			if e.Value != "4200" {
				t.Errorf("server.port value = %q, want %q", e.Value, "4200")
			}
			if e.EnvVar != "FAQFORGE_SERVER_PORT" {
				t.Errorf("server.port env var = %q, want %q", e.EnvVar, "FAQFORGE_SERVER_PORT")
			}
		}
	}
	if !foundPort {
		t.Error("ShowAll is missing server.port")
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()

	has := func(k string) bool {
		for _, key := range keys {
			if key == k {
				return true
			}
		}
		return false
	}

	if !has("train.learning_rate") {
		t.Error("ValidKeys is missing train.learning_rate")
	}
	if !has("log.level") {
		t.Error("ValidKeys is missing log.level")
	}
	if has("server.api_token") {
		t.Error("ValidKeys exposed server.api_token")
	}
}

func TestSetKeyErrors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("server.api_token", "secret"); err == nil {
		t.Error("expected error setting a secret key")
	} else if !strings.Contains(err.Error(), "environment variable") {
		t.Errorf("error = %q, want it to point at the env var", err)
	}

	if err := SetKey("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	if err := SetKey("server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}

	if err := SetKey("train.learning_rate", "xyz"); err == nil {
		t.Error("expected error for non-float learning rate")
	}
}
