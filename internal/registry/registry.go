package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/faq"
	"github.com/mkoval/faqforge/internal/session"
)

// ErrNotFound is returned when a chatbot or conversation id is unknown.
// Surfaces match it with errors.Is and map it to HTTP 404.
var ErrNotFound = errors.New("not found")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Registry tracks chatbots and their conversations in memory. Each chatbot
// owns one ModelSession (its checkpoint lineage lives under
// <modelsDir>/<id>); each conversation owns one ChatSession bound to its
// chatbot's ModelSession. Everything is lost on process exit.
//
// The registry's RWMutex guards the maps only. The sessions carry their own
// mutexes and are handed out shared.
type Registry struct {
	engine    engine.Engine
	modelsDir string
	trainOpts engine.TrainOptions
	genOpts   engine.GenerateOptions
	clock     Clock

	mu       sync.RWMutex
	chatbots map[string]*chatbotEntry
	order    []string
	convs    map[string]*convEntry
}

type chatbotEntry struct {
	info    Chatbot
	session *session.ModelSession
}

type convEntry struct {
	info Conversation
	chat *session.ChatSession
}

// New creates an empty Registry. modelsDir is the parent directory for
// per-chatbot checkpoint directories; the option sets come from
// configuration and apply to every session created.
func New(e engine.Engine, modelsDir string, trainOpts engine.TrainOptions, genOpts engine.GenerateOptions) *Registry {
	return NewWithClock(e, modelsDir, trainOpts, genOpts, realClock{})
}

// NewWithClock creates a Registry with a custom clock (for testing).
func NewWithClock(e engine.Engine, modelsDir string, trainOpts engine.TrainOptions, genOpts engine.GenerateOptions, clock Clock) *Registry {
	return &Registry{
		engine:    e,
		modelsDir: modelsDir,
		trainOpts: trainOpts,
		genOpts:   genOpts,
		clock:     clock,
		chatbots:  make(map[string]*chatbotEntry),
		convs:     make(map[string]*convEntry),
	}
}

// Create registers a new chatbot and returns its record. The chatbot starts
// untrained, with a fresh unloaded ModelSession.
func (r *Registry) Create(name, industry string) Chatbot {
	id := uuid.New().String()
	entry := &chatbotEntry{
		info: Chatbot{
			ID:        id,
			Name:      name,
			Industry:  industry,
			CreatedAt: r.clock.Now(),
		},
		session: session.NewModel(r.engine, filepath.Join(r.modelsDir, id), r.trainOpts, r.genOpts),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatbots[id] = entry
	r.order = append(r.order, id)
	return snapshot(entry.info)
}

// Get returns a snapshot of the chatbot's record.
func (r *Registry) Get(id string) (Chatbot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.chatbots[id]
	if !ok {
		return Chatbot{}, fmt.Errorf("chatbot %s: %w", id, ErrNotFound)
	}
	return snapshot(entry.info), nil
}

// List returns snapshots of all chatbots in creation order.
func (r *Registry) List() []Chatbot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Chatbot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshot(r.chatbots[id].info))
	}
	return out
}

// Delete removes the chatbot and every conversation opened against it.
// Checkpoint directories on disk are left in place.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chatbots[id]; !ok {
		return fmt.Errorf("chatbot %s: %w", id, ErrNotFound)
	}
	delete(r.chatbots, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for cid, conv := range r.convs {
		if conv.info.ChatbotID == id {
			delete(r.convs, cid)
		}
	}
	return nil
}

// Session returns the chatbot's model session. The session is shared, not a
// copy; it serializes its own operations.
func (r *Registry) Session(id string) (*session.ModelSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.chatbots[id]
	if !ok {
		return nil, fmt.Errorf("chatbot %s: %w", id, ErrNotFound)
	}
	return entry.session, nil
}

// RecordTraining stamps a completed run's outcome onto the chatbot and
// returns the updated record.
func (r *Registry) RecordTraining(id string, rec TrainingRecord) (Chatbot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.chatbots[id]
	if !ok {
		return Chatbot{}, fmt.Errorf("chatbot %s: %w", id, ErrNotFound)
	}
	entry.info.Loss = rec.Loss
	entry.info.CheckpointPath = rec.CheckpointPath
	entry.info.ExportPath = rec.ExportPath
	entry.info.Examples = rec.Examples
	entry.info.TrainedAt = r.clock.Now()
	entry.info.Pairs = append([]faq.Pair(nil), rec.Pairs...)
	return snapshot(entry.info), nil
}

// OpenConversation opens a new conversation against the chatbot. The
// conversation's ChatSession is bound to the chatbot's ModelSession.
func (r *Registry) OpenConversation(chatbotID string) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.chatbots[chatbotID]
	if !ok {
		return Conversation{}, fmt.Errorf("chatbot %s: %w", chatbotID, ErrNotFound)
	}

	id := uuid.New().String()
	conv := &convEntry{
		info: Conversation{
			ID:        id,
			ChatbotID: chatbotID,
			CreatedAt: r.clock.Now(),
		},
		chat: session.NewChat(entry.session),
	}
	r.convs[id] = conv
	return conv.info, nil
}

// Conversation returns the conversation record and its shared chat session.
func (r *Registry) Conversation(id string) (Conversation, *session.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.convs[id]
	if !ok {
		return Conversation{}, nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return conv.info, conv.chat, nil
}

// snapshot deep-copies the mutable parts of a record so callers can't reach
// back into registry state.
func snapshot(c Chatbot) Chatbot {
	c.Pairs = append([]faq.Pair(nil), c.Pairs...)
	return c
}
