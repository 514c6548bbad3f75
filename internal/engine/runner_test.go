package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunnerEngine_FineTune(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fine-tune" {
			http.NotFound(w, r)
			return
		}

		var body struct {
			Options struct {
				NumEpochs int `json:"num_epochs"`
				MaxSteps  int `json:"max_steps"`
			} `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Options.NumEpochs != 1 || body.Options.MaxSteps != 50 {
			t.Errorf("options on the wire = %+v, want epochs 1 and max_steps 50", body.Options)
		}

		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"status": "training", "step": 25, "max_steps": 50, "loss": 2.0})
		enc.Encode(map[string]any{"status": "success", "loss": 1.25, "output_dir": "/models/fine_tuned"})
	}))
	defer srv.Close()

	e := NewRunnerEngine(srv.URL)
	var steps []int
	res, err := e.FineTune(context.Background(), []string{"q ### a"}, "/models/fine_tuned",
		TrainOptions{NumEpochs: 1, MaxSteps: 50}, func(p TrainProgress) {
			steps = append(steps, p.Step)
		})
	if err != nil {
		t.Fatalf("FineTune: %v", err)
	}

	if res.Loss != 1.25 {
		t.Errorf("Loss = %v, want 1.25", res.Loss)
	}
	if res.OutputDir != "/models/fine_tuned" {
		t.Errorf("OutputDir = %q, want %q", res.OutputDir, "/models/fine_tuned")
	}
	if len(steps) != 2 {
		t.Errorf("received %d progress updates, want 2", len(steps))
	}
}

func TestRunnerEngine_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hours? ### 9 to 5"})
	}))
	defer srv.Close()

	e := NewRunnerEngine(srv.URL)
	text, err := e.Generate(context.Background(), "hours? ###", GenerateOptions{MaxLength: 128})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "hours? ### 9 to 5" {
		t.Errorf("text = %q", text)
	}
}

func TestRunnerEngine_Info(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/info" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"base_model": "distilgpt2", "device": "cpu"})
	}))
	defer srv.Close()

	info, err := NewRunnerEngine(srv.URL).Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.BaseModel != "distilgpt2" || info.Device != "cpu" {
		t.Errorf("Info = %+v", info)
	}
}

func TestRunnerEngine_IsRunning_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if NewRunnerEngine(srv.URL).IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}
