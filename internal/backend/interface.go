package backend

import (
	"context"

	"afasrapport/internal/cache"
	"afasrapport/internal/core"
)

// Ports implemented by the record stores.
type (
	RecordReader interface {
		ListRecords(ctx context.Context, startYear, endYear int) ([]core.RawTransaction, error)
	}

	RecordWriter interface {
		// ReplaceYear swaps all stored records of year and returns how many were written.
		ReplaceYear(ctx context.Context, year int, records []core.RawTransaction) (int, error)
	}

	MappingStore interface {
		UpsertCategoryMapping(ctx context.Context, m core.CategoryMapping) error
		ListCategoryMappings(ctx context.Context) ([]core.CategoryMapping, error)
	}

	ConversationStore interface {
		CreateConversation(ctx context.Context, title string) (core.Conversation, error)
		// GetConversation returns core.ErrNotFound for unknown IDs.
		GetConversation(ctx context.Context, id string) (core.Conversation, error)
		AppendMessage(ctx context.Context, msg core.ChatMessage) error
		ListMessages(ctx context.Context, conversationID string) ([]core.ChatMessage, error)
	}

	// Store is everything a record backend provides.
	Store interface {
		RecordReader
		RecordWriter
		MappingStore
		ConversationStore
	}

	// Pinger is implemented by backends that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the wired store, cache and their cleanup.
type BackendResult struct {
	Store   Store
	Cache   cache.Backend
	Checks  map[string]Pinger
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
