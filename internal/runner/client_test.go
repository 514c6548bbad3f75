package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsRunning_Up(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
}

func TestIsRunning_Down(t *testing.T) {
	// Point at a closed server to simulate connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if c.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}

func TestInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/info" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(Info{BaseModel: "distilgpt2", Device: "mps", LoadedCheckpoint: "/models/fine_tuned"})
	}))
	defer srv.Close()

	info, err := New(srv.URL).Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	if info.BaseModel != "distilgpt2" {
		t.Errorf("BaseModel = %q, want %q", info.BaseModel, "distilgpt2")
	}
	if info.LoadedCheckpoint != "/models/fine_tuned" {
		t.Errorf("LoadedCheckpoint = %q, want %q", info.LoadedCheckpoint, "/models/fine_tuned")
	}
}

func TestGenerate(t *testing.T) {
	var captured generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(generateResponse{Text: "What are your hours? ### 9 to 5"})
	}))
	defer srv.Close()

	opts := GenerateOptions{MaxLength: 128, NumBeams: 2, Temperature: 0.7, TopK: 50, TopP: 0.9, NoRepeatNgram: 2}
	text, err := New(srv.URL).Generate(context.Background(), "What are your hours? ###", opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if text != "What are your hours? ### 9 to 5" {
		t.Errorf("text = %q", text)
	}
	if captured.Prompt != "What are your hours? ###" {
		t.Errorf("wire prompt = %q", captured.Prompt)
	}
	if captured.Options != opts {
		t.Errorf("wire options = %+v, want %+v", captured.Options, opts)
	}
}

func TestLoad(t *testing.T) {
	var captured loadRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/load" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"status":"loaded","path":"/models/fine_tuned"}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).Load(context.Background(), "/models/fine_tuned"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if captured.Path != "/models/fine_tuned" {
		t.Errorf("wire path = %q, want %q", captured.Path, "/models/fine_tuned")
	}
}

func TestLoad_SurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("checkpoint not found"))
	}))
	defer srv.Close()

	err := New(srv.URL).Load(context.Background(), "/missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "checkpoint not found") {
		t.Errorf("error = %q, want it to contain the response body", err)
	}
}

func TestFineTune_Progress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fine-tune" {
			http.NotFound(w, r)
			return
		}

		var reqBody fineTuneRequest
		json.NewDecoder(r.Body).Decode(&reqBody)
		if len(reqBody.Examples) != 2 {
			t.Errorf("wire examples = %d, want 2", len(reqBody.Examples))
		}
		if reqBody.Options.MaxSteps != 50 {
			t.Errorf("wire max_steps = %d, want 50", reqBody.Options.MaxSteps)
		}

		// Stream progress lines as newline-delimited JSON.
		enc := json.NewEncoder(w)
		enc.Encode(TrainProgress{Status: "training", Step: 10, MaxSteps: 50, Loss: 2.41})
		enc.Encode(TrainProgress{Status: "training", Step: 50, MaxSteps: 50, Loss: 1.08})
		enc.Encode(TrainProgress{Status: "success", Loss: 1.08, OutputDir: "/models/fine_tuned"})
	}))
	defer srv.Close()

	opts := TrainOptions{NumEpochs: 1, BatchSize: 2, LearningRate: 1e-4, MaxSteps: 50}
	var progressCount int
	loss, dir, err := New(srv.URL).FineTune(context.Background(), []string{"q1 ### a1", "q2 ### a2"}, "/models/fine_tuned", opts, func(p TrainProgress) {
		progressCount++
	})
	if err != nil {
		t.Fatalf("FineTune: %v", err)
	}

	if progressCount != 3 {
		t.Errorf("received %d progress updates, want 3", progressCount)
	}
	if loss != 1.08 {
		t.Errorf("loss = %v, want 1.08", loss)
	}
	if dir != "/models/fine_tuned" {
		t.Errorf("dir = %q, want %q", dir, "/models/fine_tuned")
	}
}

func TestFineTune_RunnerReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(TrainProgress{Status: "training", Step: 1, MaxSteps: 50})
		enc.Encode(TrainProgress{Status: "error", Error: "out of memory"})
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).FineTune(context.Background(), []string{"x"}, "", TrainOptions{}, nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("error = %q, want it to contain the runner message", err)
	}
}

func TestFineTune_TruncatedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TrainProgress{Status: "training", Step: 5, MaxSteps: 50})
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).FineTune(context.Background(), []string{"x"}, "", TrainOptions{}, nil)
	if err == nil {
		t.Fatal("expected error for stream without terminal status, got nil")
	}
}

func TestFineTune_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("empty training set"))
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).FineTune(context.Background(), nil, "", TrainOptions{}, nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "empty training set") {
		t.Errorf("error = %q, want it to contain the response body", err)
	}
}
