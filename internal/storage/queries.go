package storage

import (
	"context"
)

type Transaction struct {
	ID         int64
	Jaar       int64
	Periode    int64
	Payload    string
	ImportedAt int64
}

type CacheEntry struct {
	Key       string
	Value     []byte
	ExpiresAt int64
}

type CategoryMapping struct {
	Category    string
	ReportGroup string
	UpdatedAt   int64
}

type Conversation struct {
	ID        string
	Title     string
	CreatedAt int64
}

type ChatMessage struct {
	ID             int64
	ConversationID string
	Role           string
	Content        string
	CreatedAt      int64
}

const insertTransaction = `-- name: InsertTransaction :exec
INSERT INTO transactions (jaar, periode, payload, imported_at)
VALUES (?, ?, ?, ?)
`

type InsertTransactionParams struct {
	Jaar       int64
	Periode    int64
	Payload    string
	ImportedAt int64
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction, arg.Jaar, arg.Periode, arg.Payload, arg.ImportedAt)
	return err
}

const deleteTransactionsByYear = `-- name: DeleteTransactionsByYear :execrows
DELETE FROM transactions WHERE jaar = ?
`

func (q *Queries) DeleteTransactionsByYear(ctx context.Context, jaar int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransactionsByYear, jaar)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactionsByYears = `-- name: ListTransactionsByYears :many
SELECT id, jaar, periode, payload, imported_at
FROM transactions
WHERE jaar BETWEEN ? AND ?
ORDER BY jaar, periode, id
`

type ListTransactionsByYearsParams struct {
	StartYear int64
	EndYear   int64
}

func (q *Queries) ListTransactionsByYears(ctx context.Context, arg ListTransactionsByYearsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByYears, arg.StartYear, arg.EndYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Jaar, &i.Periode, &i.Payload, &i.ImportedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactionsByYear = `-- name: CountTransactionsByYear :many
SELECT jaar, COUNT(*) FROM transactions GROUP BY jaar ORDER BY jaar
`

type CountTransactionsByYearRow struct {
	Jaar  int64
	Count int64
}

func (q *Queries) CountTransactionsByYear(ctx context.Context) ([]CountTransactionsByYearRow, error) {
	rows, err := q.db.QueryContext(ctx, countTransactionsByYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountTransactionsByYearRow
	for rows.Next() {
		var i CountTransactionsByYearRow
		if err := rows.Scan(&i.Jaar, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCacheEntry = `-- name: GetCacheEntry :one
SELECT key, value, expires_at FROM cache_entries WHERE key = ?
`

func (q *Queries) GetCacheEntry(ctx context.Context, key string) (CacheEntry, error) {
	row := q.db.QueryRowContext(ctx, getCacheEntry, key)
	var i CacheEntry
	err := row.Scan(&i.Key, &i.Value, &i.ExpiresAt)
	return i, err
}

const upsertCacheEntry = `-- name: UpsertCacheEntry :exec
INSERT INTO cache_entries (key, value, expires_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
`

type UpsertCacheEntryParams struct {
	Key       string
	Value     []byte
	ExpiresAt int64
}

func (q *Queries) UpsertCacheEntry(ctx context.Context, arg UpsertCacheEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertCacheEntry, arg.Key, arg.Value, arg.ExpiresAt)
	return err
}

const deleteCacheEntry = `-- name: DeleteCacheEntry :exec
DELETE FROM cache_entries WHERE key = ?
`

func (q *Queries) DeleteCacheEntry(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteCacheEntry, key)
	return err
}

const deleteCacheEntriesByPrefix = `-- name: DeleteCacheEntriesByPrefix :exec
DELETE FROM cache_entries WHERE substr(key, 1, length(?1)) = ?1
`

func (q *Queries) DeleteCacheEntriesByPrefix(ctx context.Context, prefix string) error {
	_, err := q.db.ExecContext(ctx, deleteCacheEntriesByPrefix, prefix)
	return err
}

const deleteExpiredCacheEntries = `-- name: DeleteExpiredCacheEntries :execrows
DELETE FROM cache_entries WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredCacheEntries(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredCacheEntries, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertCategoryMapping = `-- name: UpsertCategoryMapping :exec
INSERT INTO category_mappings (category, report_group, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (category) DO UPDATE SET report_group = excluded.report_group, updated_at = excluded.updated_at
`

type UpsertCategoryMappingParams struct {
	Category    string
	ReportGroup string
	UpdatedAt   int64
}

func (q *Queries) UpsertCategoryMapping(ctx context.Context, arg UpsertCategoryMappingParams) error {
	_, err := q.db.ExecContext(ctx, upsertCategoryMapping, arg.Category, arg.ReportGroup, arg.UpdatedAt)
	return err
}

const listCategoryMappings = `-- name: ListCategoryMappings :many
SELECT category, report_group, updated_at FROM category_mappings ORDER BY category
`

func (q *Queries) ListCategoryMappings(ctx context.Context) ([]CategoryMapping, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryMappings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryMapping
	for rows.Next() {
		var i CategoryMapping
		if err := rows.Scan(&i.Category, &i.ReportGroup, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertConversation = `-- name: InsertConversation :exec
INSERT INTO conversations (id, title, created_at) VALUES (?, ?, ?)
`

func (q *Queries) InsertConversation(ctx context.Context, arg Conversation) error {
	_, err := q.db.ExecContext(ctx, insertConversation, arg.ID, arg.Title, arg.CreatedAt)
	return err
}

const getConversation = `-- name: GetConversation :one
SELECT id, title, created_at FROM conversations WHERE id = ?
`

func (q *Queries) GetConversation(ctx context.Context, id string) (Conversation, error) {
	row := q.db.QueryRowContext(ctx, getConversation, id)
	var i Conversation
	err := row.Scan(&i.ID, &i.Title, &i.CreatedAt)
	return i, err
}

const insertChatMessage = `-- name: InsertChatMessage :exec
INSERT INTO chat_messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)
`

type InsertChatMessageParams struct {
	ConversationID string
	Role           string
	Content        string
	CreatedAt      int64
}

func (q *Queries) InsertChatMessage(ctx context.Context, arg InsertChatMessageParams) error {
	_, err := q.db.ExecContext(ctx, insertChatMessage, arg.ConversationID, arg.Role, arg.Content, arg.CreatedAt)
	return err
}

const listChatMessages = `-- name: ListChatMessages :many
SELECT id, conversation_id, role, content, created_at
FROM chat_messages
WHERE conversation_id = ?
ORDER BY id
`

func (q *Queries) ListChatMessages(ctx context.Context, conversationID string) ([]ChatMessage, error) {
	rows, err := q.db.QueryContext(ctx, listChatMessages, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChatMessage
	for rows.Next() {
		var i ChatMessage
		if err := rows.Scan(&i.ID, &i.ConversationID, &i.Role, &i.Content, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
