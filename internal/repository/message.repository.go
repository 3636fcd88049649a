package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
)

var ErrNotFound = errors.New("message not found")

// MessageRepository persists the message collection as one pretty-printed
// JSON array on disk. Every operation is a full read-modify-write; the
// mutex gives the single-writer discipline the format needs, so concurrent
// submissions cannot lose each other's append.
type MessageRepository struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewMessageRepository(path string) (*MessageRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	r := &MessageRepository{path: path, now: time.Now}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := r.save([]*model.Message{}); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
	}
	return r, nil
}

// Append stores a new message and assigns its id: millisecond timestamps
// keep ids ordered by creation time, bumping past the current maximum
// keeps them unique when two submissions land within the same millisecond.
func (r *MessageRepository) Append(ctx context.Context, m *model.Message) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.load()

	id := r.now().UnixMilli()
	for _, existing := range messages {
		if existing.ID >= id {
			id = existing.ID + 1
		}
	}
	m.ID = id

	messages = append(messages, m)
	if err := r.save(messages); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all messages, newest first.
func (r *MessageRepository) List(ctx context.Context) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.load()
	out := make([]*model.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		out = append(out, messages[i])
	}
	return out, nil
}

func (r *MessageRepository) Get(ctx context.Context, id int64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.load() {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

// Update applies mutate to the message with the given id and writes the
// collection back.
func (r *MessageRepository) Update(ctx context.Context, id int64, mutate func(*model.Message)) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.load()
	for _, m := range messages {
		if m.ID == id {
			mutate(m)
			if err := r.save(messages); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.load()
	for i, m := range messages {
		if m.ID == id {
			messages = append(messages[:i], messages[i+1:]...)
			return r.save(messages)
		}
	}
	return ErrNotFound
}

// load reads the whole collection. A missing or corrupt file degrades to
// an empty collection so a damaged store never takes the API down.
func (r *MessageRepository) load() []*model.Message {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("message store unreadable, treating as empty", "path", r.path, "error", err)
		}
		return []*model.Message{}
	}

	var messages []*model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		logger.Warn("message store corrupt, treating as empty", "path", r.path, "error", err)
		return []*model.Message{}
	}
	return messages
}

// save writes the collection through a temp file and rename so a crash
// mid-write cannot leave a half-written store behind.
func (r *MessageRepository) save(messages []*model.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write message store: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace message store: %w", err)
	}
	return nil
}
