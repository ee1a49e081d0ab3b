// Package memory is the in-process record store used for development and
// tests. It can be seeded from an AFAS JSON export.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"afasrapport/internal/core"
)

type Store struct {
	mu            sync.RWMutex
	byYear        map[int][]core.RawTransaction
	mappings      map[string]string
	conversations map[string]core.Conversation
	messages      map[string][]core.ChatMessage
	now           func() time.Time
}

func New(records []core.RawTransaction) *Store {
	s := &Store{
		byYear:        make(map[int][]core.RawTransaction),
		mappings:      make(map[string]string),
		conversations: make(map[string]core.Conversation),
		messages:      make(map[string][]core.ChatMessage),
		now:           time.Now,
	}
	for _, r := range records {
		s.byYear[r.Jaar] = append(s.byYear[r.Jaar], r)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of AFAS rows. An empty
// path gives an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	records, err := core.ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(records), nil
}

func (s *Store) ReplaceYear(_ context.Context, year int, records []core.RawTransaction) (int, error) {
	for i, rec := range records {
		if rec.Jaar != year {
			return 0, fmt.Errorf("%w: record %d has year %d, expected %d", core.ErrInvalidRecord, i, rec.Jaar, year)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byYear[year] = append([]core.RawTransaction(nil), records...)
	return len(records), nil
}

func (s *Store) ListRecords(_ context.Context, startYear, endYear int) ([]core.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RawTransaction
	for y := startYear; y <= endYear; y++ {
		out = append(out, s.byYear[y]...)
	}
	return out, nil
}

func (s *Store) UpsertCategoryMapping(_ context.Context, m core.CategoryMapping) error {
	category := strings.TrimSpace(m.Category)
	group := strings.TrimSpace(m.ReportGroup)
	if category == "" || group == "" {
		return fmt.Errorf("%w: category and report group are required", core.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[category] = group
	return nil
}

func (s *Store) ListCategoryMappings(_ context.Context) ([]core.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CategoryMapping, 0, len(s.mappings))
	for c, g := range s.mappings {
		out = append(out, core.CategoryMapping{Category: c, ReportGroup: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) CreateConversation(_ context.Context, title string) (core.Conversation, error) {
	conv := core.Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *Store) GetConversation(_ context.Context, id string) (core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return core.Conversation{}, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	return conv, nil
}

func (s *Store) AppendMessage(_ context.Context, msg core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, core.ErrNotFound)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]core.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ChatMessage{}, s.messages[conversationID]...), nil
}
