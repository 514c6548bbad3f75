package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/registry"
	"github.com/mkoval/faqforge/internal/session"
)

func handleOpenConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := deps.Registry.OpenConversation(chi.URLParam(r, "id"))
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conv)
	}
}

func handleMessage(deps Deps) http.HandlerFunc {
	type messageResponse struct {
		Answer   string         `json:"answer"`
		History  []session.Turn `json:"history"`
		Guidance bool           `json:"guidance,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		id := chi.URLParam(r, "id")
		conv, chat, err := deps.Registry.Conversation(id)
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		bot, err := deps.Registry.Get(conv.ChatbotID)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}

		// Guidance answers are the precondition responses: the session
		// returns them with a nil error and leaves history alone.
		guidance := bot.CheckpointPath == "" || strings.TrimSpace(req.Question) == ""

		answer, err := chat.Ask(r.Context(), req.Question, bot.CheckpointPath)
		if err != nil {
			slog.Error("chat failed", "conversation", id, "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse{
			Answer:   answer,
			History:  chat.History(),
			Guidance: guidance,
		})
	}
}

func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			ChatbotID string `json:"chatbot_id"`
			Dest      string `json:"dest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		bot, err := deps.Registry.Get(req.ChatbotID)
		if errors.Is(err, registry.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chatbot not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}
		if bot.TrainedAt.IsZero() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "chatbot has not been trained yet")
			return
		}

		path, err := deps.Exporter.Export(export.Business{Name: bot.Name, Industry: bot.Industry}, bot.Pairs, req.Dest)
		if err != nil {
			slog.Error("export failed", "chatbot", bot.ID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"path": path})
	}
}
