package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TrainOptions carries the fine-tuning hyperparameters in the runner's wire
// format.
type TrainOptions struct {
	NumEpochs      int     `json:"num_epochs"`
	BatchSize      int     `json:"batch_size"`
	LearningRate   float64 `json:"learning_rate"`
	WarmupSteps    int     `json:"warmup_steps"`
	MaxGradNorm    float64 `json:"max_grad_norm"`
	MaxLength      int     `json:"max_length"`
	GradAccumSteps int     `json:"gradient_accumulation_steps"`
	MaxSteps       int     `json:"max_steps"`
}

// GenerateOptions carries the sampling parameters in the runner's wire format.
type GenerateOptions struct {
	MaxLength     int     `json:"max_length"`
	NumBeams      int     `json:"num_beams"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k"`
	TopP          float64 `json:"top_p"`
	NoRepeatNgram int     `json:"no_repeat_ngram_size"`
}

// Client communicates with a local model-runner process over HTTP. The runner
// owns the actual tokenizer, trainer loop, and sampler; this client only
// moves parameters and text across the wire.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given runner base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// IsRunning returns true if the runner responds to GET /health with 200.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Info describes the runner's current model state.
type Info struct {
	BaseModel        string `json:"base_model"`
	Device           string `json:"device"`
	LoadedCheckpoint string `json:"loaded_checkpoint"`
}

// Info returns the runner's base model, device, and currently loaded
// checkpoint path (empty when the base model is active).
func (c *Client) Info(ctx context.Context) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/info", nil)
	if err != nil {
		return Info{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("requesting runner info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("info: %s", errorBody(resp))
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("decoding response: %w", err)
	}
	return info, nil
}

// fineTuneRequest is the JSON body for POST /api/fine-tune.
type fineTuneRequest struct {
	Examples  []string     `json:"examples"`
	OutputDir string       `json:"output_dir"`
	Options   TrainOptions `json:"options"`
}

// TrainProgress is one line of the streamed fine-tune response. The terminal
// line carries status "success" with the final loss and output directory, or
// status "error" with the failure message.
type TrainProgress struct {
	Status    string  `json:"status"`
	Step      int     `json:"step,omitempty"`
	MaxSteps  int     `json:"max_steps,omitempty"`
	Loss      float64 `json:"loss,omitempty"`
	OutputDir string  `json:"output_dir,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// FineTune runs one fine-tuning job on the runner, reading the streamed
// progress to completion. The optional callback receives each progress line;
// pass nil to ignore. Returns the final loss and the checkpoint directory the
// runner wrote. Training legitimately blocks for minutes, so no timeout is
// applied beyond ctx cancellation.
func (c *Client) FineTune(ctx context.Context, examples []string, outputDir string, opts TrainOptions, onProgress func(TrainProgress)) (float64, string, error) {
	body, err := json.Marshal(fineTuneRequest{Examples: examples, OutputDir: outputDir, Options: opts})
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/fine-tune", bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("creating fine-tune request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("fine-tune request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("fine-tune: %s", errorBody(resp))
	}

	var final TrainProgress
	dec := json.NewDecoder(resp.Body)
	for {
		var p TrainProgress
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			return 0, "", fmt.Errorf("reading training progress: %w", err)
		}
		if onProgress != nil {
			onProgress(p)
		}
		final = p
	}

	switch final.Status {
	case "success":
		return final.Loss, final.OutputDir, nil
	case "error":
		return 0, "", fmt.Errorf("runner training failed: %s", final.Error)
	default:
		return 0, "", fmt.Errorf("fine-tune stream ended without a terminal status (last %q)", final.Status)
	}
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	Prompt  string          `json:"prompt"`
	Options GenerateOptions `json:"options"`
}

// generateResponse is the JSON returned by POST /api/generate.
type generateResponse struct {
	Text string `json:"text"`
}

// Generate samples a completion for the prompt from the currently loaded
// model. The runner decodes to its max-length cap.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	body, err := json.Marshal(generateRequest{Prompt: prompt, Options: opts})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate: %s", errorBody(resp))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	return result.Text, nil
}

// loadRequest is the JSON body for POST /api/load.
type loadRequest struct {
	Path string `json:"path"`
}

// Load points the runner at a fine-tuned checkpoint directory, replacing
// whatever model it currently serves. Loading reads the checkpoint from disk
// and can take a while on first touch.
func (c *Client) Load(ctx context.Context, path string) error {
	body, err := json.Marshal(loadRequest{Path: path})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/load", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load %s: %s", path, errorBody(resp))
	}
	return nil
}

// errorBody renders a non-2xx response as "status NNN: body", trimming the
// body so runner tracebacks don't flood the error chain.
func errorBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, msg)
}
