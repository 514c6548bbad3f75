package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/faq"
	"github.com/mkoval/faqforge/internal/registry"
	"github.com/mkoval/faqforge/internal/source"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP layer serves.
type Deps struct {
	Registry  *registry.Registry
	Catalog   *catalog.Catalog
	Builder   *dataset.Builder
	Exporter  *export.Exporter
	Engine    engine.Engine
	Sources   *source.Loader
	TrainOpts engine.TrainOptions
	Token     string // empty disables bearer auth
}

// NewHandler returns the HTTP API plus the embedded web UI. The /api subtree
// requires a bearer token when one is configured; the UI and health check
// stay open.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", handleUI)
	r.Get("/ui", handleUI)
	r.Get("/healthz", handleHealthz(deps))

	r.Route("/api", func(api chi.Router) {
		if deps.Token != "" {
			api.Use(BearerAuth(deps.Token))
		}
		api.Get("/industries", handleIndustries(deps))
		api.Post("/faqs/parse", handleParseFAQs)
		api.Post("/chatbots", handleCreateChatbot(deps))
		api.Get("/chatbots", handleListChatbots(deps))
		api.Get("/chatbots/{id}", handleGetChatbot(deps))
		api.Delete("/chatbots/{id}", handleDeleteChatbot(deps))
		api.Post("/chatbots/{id}/train", handleTrainChatbot(deps))
		api.Post("/chatbots/{id}/conversations", handleOpenConversation(deps))
		api.Post("/conversations/{id}/messages", handleMessage(deps))
		api.Post("/export", handleExport(deps))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func handleHealthz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"runner": deps.Engine.IsRunning(r.Context()),
		})
	}
}

func handleIndustries(deps Deps) http.HandlerFunc {
	type industryInfo struct {
		Name  string `json:"name"`
		Pairs int    `json:"pairs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		industries := deps.Catalog.Industries()
		out := make([]industryInfo, len(industries))
		for i, ind := range industries {
			out[i] = industryInfo{Name: ind.Name, Pairs: len(ind.Pairs)}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleParseFAQs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	pairs := faq.Parse(req.Text)
	if pairs == nil {
		pairs = []faq.Pair{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(pairs),
		"pairs": pairs,
	})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
