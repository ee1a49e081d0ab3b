package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"afasrapport/internal/core"
	"afasrapport/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists imported ledger records, cache entries,
// category mappings and assistant conversations.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReplaceYear swaps every stored record of year for records in a single
// transaction. Records from other years are rejected.
func (r *SQLiteRepository) ReplaceYear(ctx context.Context, year int, records []core.RawTransaction) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	removed, err := q.DeleteTransactionsByYear(ctx, int64(year))
	if err != nil {
		return 0, fmt.Errorf("delete year %d: %w", year, err)
	}

	importedAt := r.now().Unix()
	for i, rec := range records {
		if rec.Jaar != year {
			return 0, fmt.Errorf("%w: record %d has year %d, expected %d", core.ErrInvalidRecord, i, rec.Jaar, year)
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := q.InsertTransaction(ctx, InsertTransactionParams{
			Jaar:       int64(rec.Jaar),
			Periode:    int64(rec.Periode),
			Payload:    string(payload),
			ImportedAt: importedAt,
		}); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit year %d: %w", year, err)
	}

	r.logger.InfoContext(ctx, "Year replaced",
		log.FieldYear, year, log.FieldRecords, len(records), "removed", removed)
	return len(records), nil
}

// ListRecords returns stored records with startYear <= Jaar <= endYear,
// ordered by year and period.
func (r *SQLiteRepository) ListRecords(ctx context.Context, startYear, endYear int) ([]core.RawTransaction, error) {
	rows, err := r.queries.ListTransactionsByYears(ctx, ListTransactionsByYearsParams{
		StartYear: int64(startYear),
		EndYear:   int64(endYear),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	records := make([]core.RawTransaction, len(rows))
	for i, row := range rows {
		if err := json.Unmarshal([]byte(row.Payload), &records[i]); err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", row.ID, err)
		}
	}
	return records, nil
}

// YearCounts returns the number of stored records per year.
func (r *SQLiteRepository) YearCounts(ctx context.Context) (map[int]int, error) {
	rows, err := r.queries.CountTransactionsByYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	out := make(map[int]int, len(rows))
	for _, row := range rows {
		out[int(row.Jaar)] = int(row.Count)
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertCategoryMapping(ctx context.Context, m core.CategoryMapping) error {
	category := strings.TrimSpace(m.Category)
	group := strings.TrimSpace(m.ReportGroup)
	if category == "" || group == "" {
		return fmt.Errorf("%w: category and report group are required", core.ErrInvalidRecord)
	}
	err := r.queries.UpsertCategoryMapping(ctx, UpsertCategoryMappingParams{
		Category:    category,
		ReportGroup: group,
		UpdatedAt:   r.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("upsert category mapping %s: %w", category, err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategoryMappings(ctx context.Context) ([]core.CategoryMapping, error) {
	rows, err := r.queries.ListCategoryMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category mappings: %w", err)
	}
	out := make([]core.CategoryMapping, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryMapping{Category: row.Category, ReportGroup: row.ReportGroup}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateConversation(ctx context.Context, title string) (core.Conversation, error) {
	conv := Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: r.now().Unix(),
	}
	if err := r.queries.InsertConversation(ctx, conv); err != nil {
		return core.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return core.Conversation{ID: conv.ID, Title: conv.Title, CreatedAt: time.Unix(conv.CreatedAt, 0).UTC()}, nil
}

// GetConversation returns core.ErrNotFound for unknown IDs.
func (r *SQLiteRepository) GetConversation(ctx context.Context, id string) (core.Conversation, error) {
	conv, err := r.queries.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Conversation{}, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
		}
		return core.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return core.Conversation{ID: conv.ID, Title: conv.Title, CreatedAt: time.Unix(conv.CreatedAt, 0).UTC()}, nil
}

// AppendMessage stores one turn. The conversation must exist.
func (r *SQLiteRepository) AppendMessage(ctx context.Context, msg core.ChatMessage) error {
	if _, err := r.GetConversation(ctx, msg.ConversationID); err != nil {
		return err
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	err := r.queries.InsertChatMessage(ctx, InsertChatMessageParams{
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      createdAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListMessages(ctx context.Context, conversationID string) ([]core.ChatMessage, error) {
	rows, err := r.queries.ListChatMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]core.ChatMessage, len(rows))
	for i, row := range rows {
		out[i] = core.ChatMessage{
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        row.Content,
			CreatedAt:      time.Unix(row.CreatedAt, 0).UTC(),
		}
	}
	return out, nil
}
