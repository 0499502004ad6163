package store

import (
	"context"
	"database/sql"
	"fmt"
)

const DefaultSessionLimit = 50

// PostgresStore reads the n8n chat-history table, one database per tenant.
// The table is owned by the upstream workflow; this store never writes.
type PostgresStore struct {
	tenants *Tenants
}

func NewPostgresStore(tenants *Tenants) *PostgresStore {
	return &PostgresStore{tenants: tenants}
}

func (s *PostgresStore) Ping(ctx context.Context, tenant Tenant) error {
	db, err := s.tenants.DB(tenant)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// ListSessions returns the most recent message per distinct session_id,
// most-recent-first. A non-positive limit falls back to DefaultSessionLimit.
func (s *PostgresStore) ListSessions(ctx context.Context, tenant Tenant, limit int) ([]SessionSummary, error) {
	db, err := s.tenants.DB(tenant)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSessionLimit
	}

	rows, err := db.QueryContext(ctx, `
		WITH ranked AS (
			SELECT
				session_id,
				message,
				created_at,
				ROW_NUMBER() OVER (
					PARTITION BY session_id
					ORDER BY created_at DESC
				) AS row_number
			FROM n8n_chat_histories
		)
		SELECT
			session_id,
			COALESCE(message->>'content', '') AS last_message,
			created_at AS last_message_at
		FROM ranked
		WHERE row_number = 1
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	items := make([]SessionSummary, 0)
	for rows.Next() {
		var item SessionSummary
		if err := rows.Scan(&item.SessionID, &item.LastMessage, &item.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return items, nil
}

// ListMessages returns the full thread for one session, ascending by
// creation time.
func (s *PostgresStore) ListMessages(ctx context.Context, tenant Tenant, sessionID string) ([]ChatMessage, error) {
	db, err := s.tenants.DB(tenant)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			id,
			session_id,
			COALESCE(message->>'type', 'human') AS role,
			COALESCE(message->>'content', '') AS content,
			created_at
		FROM n8n_chat_histories
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]ChatMessage, 0)
	for rows.Next() {
		var item ChatMessage
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Role, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		item.Role = NormalizeRole(item.Role)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return items, nil
}

// ExportRows returns every message for the tenant, or for one session when
// sessionID is non-empty, ordered for the CSV export.
func (s *PostgresStore) ExportRows(ctx context.Context, tenant Tenant, sessionID string) ([]ExportRow, error) {
	db, err := s.tenants.DB(tenant)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			id,
			session_id,
			COALESCE(message->>'type', 'human') AS role,
			COALESCE(message->>'content', '') AS content,
			created_at
		FROM n8n_chat_histories
	`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	query += ` ORDER BY session_id ASC, created_at ASC`

	var rows *sql.Rows
	rows, err = db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}
	defer rows.Close()

	items := make([]ExportRow, 0)
	for rows.Next() {
		var item ExportRow
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Role, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return items, nil
}
