package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkoval/faqforge/internal/pipeline"
	"github.com/mkoval/faqforge/internal/registry"
)

func handleCreateChatbot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Name     string `json:"name"`
			Industry string `json:"industry"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		bot := deps.Registry.Create(req.Name, req.Industry)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bot)
	}
}

func handleListChatbots(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Registry.List())
	}
}

func handleGetChatbot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := deps.Registry.Get(chi.URLParam(r, "id"))
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bot)
	}
}

func handleDeleteChatbot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Registry.Delete(chi.URLParam(r, "id"))
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleTrainChatbot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			FAQText string `json:"faq_text"`
			Source  string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		id := chi.URLParam(r, "id")
		bot, err := deps.Registry.Get(id)
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		text := req.FAQText
		if text == "" && req.Source != "" {
			text, err = deps.Sources.Load(r.Context(), req.Source)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "loading source %q: %v", req.Source, err)
				return
			}
		}

		model, err := deps.Registry.Session(id)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}

		// Tuning through the chatbot's session serializes the run against
		// its chat traffic.
		trainer := pipeline.NewTrainer(model, deps.Builder, deps.Exporter, deps.TrainOpts)
		pReq := pipeline.Request{
			Name:      bot.Name,
			Industry:  bot.Industry,
			FAQText:   text,
			OutputDir: model.OutputDir(),
		}

		if wantsEventStream(r) {
			streamTrain(w, r, deps, id, trainer, pReq)
			return
		}

		res, err := trainer.Run(r.Context(), pReq, nil)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, pipeline.ErrNoExamples) {
				status = http.StatusBadRequest
			}
			slog.Error("training failed", "chatbot", id, "error", err)
			httpError(w, status, "api_error", "Error: %v", err)
			return
		}

		if _, err := recordTraining(deps, id, res); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

func recordTraining(deps Deps, id string, res *pipeline.Result) (registry.Chatbot, error) {
	return deps.Registry.RecordTraining(id, registry.TrainingRecord{
		Loss:           res.Loss,
		CheckpointPath: res.CheckpointPath,
		ExportPath:     res.ExportPath,
		Examples:       res.Examples,
		Pairs:          res.Pairs,
	})
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// streamTrain runs the training pipeline while streaming its progress as
// server-sent events. Each event is named after the pipeline stage emitting
// it; the stream terminates with a "result" or "error" event.
func streamTrain(w http.ResponseWriter, r *http.Request, deps Deps, id string, trainer *pipeline.Trainer, req pipeline.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(name string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			slog.Error("marshalling stream event", "event", name, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
		flusher.Flush()
	}

	res, err := trainer.Run(r.Context(), req, func(e pipeline.Event) {
		writeEvent(string(e.Stage), e)
	})
	if err != nil {
		slog.Error("training failed", "chatbot", id, "error", err)
		writeEvent("error", map[string]string{"message": fmt.Sprintf("Error: %v", err)})
		return
	}

	if _, err := recordTraining(deps, id, res); err != nil {
		writeEvent("error", map[string]string{"message": fmt.Sprintf("Error: %v", err)})
		return
	}
	writeEvent("result", res)
}
