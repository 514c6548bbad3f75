package registry

import (
	"time"

	"github.com/mkoval/faqforge/internal/faq"
)

// Chatbot is one registered chatbot's record. CheckpointPath, ExportPath,
// Loss, Examples and TrainedAt stay zero until a training run completes.
type Chatbot struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Industry       string    `json:"industry"`
	CheckpointPath string    `json:"checkpoint_path,omitempty"`
	ExportPath     string    `json:"export_path,omitempty"`
	Loss           float64   `json:"loss,omitempty"`
	Examples       int       `json:"examples,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	TrainedAt      time.Time `json:"trained_at,omitzero"`

	// Pairs is the question/answer set of the last training run, kept so the
	// chatbot's data can be re-exported without retraining.
	Pairs []faq.Pair `json:"-"`
}

// TrainingRecord carries a completed run's outcome into the registry.
type TrainingRecord struct {
	Loss           float64
	CheckpointPath string
	ExportPath     string
	Examples       int
	Pairs          []faq.Pair
}

// Conversation is one open conversation against a chatbot.
type Conversation struct {
	ID        string    `json:"id"`
	ChatbotID string    `json:"chatbot_id"`
	CreatedAt time.Time `json:"created_at"`
}
