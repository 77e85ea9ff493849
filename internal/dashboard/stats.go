package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stats is the tenant's reporting snapshot.
type Stats struct {
	TotalLeads         int            `json:"totalLeads"`
	LeadsByStatus      map[string]int `json:"leadsByStatus"`
	TotalConversations int            `json:"totalConversations"`
	MessagesToday      int            `json:"messagesToday"`
}

// Store runs the aggregate queries behind the dashboard.
type Store struct {
	pool querier
}

// NewStore builds a stats store over a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("dashboard: pgx pool required")
	}
	return &Store{pool: pool}
}

// Snapshot collects the tenant's counters.
func (s *Store) Snapshot(ctx context.Context, userID string) (*Stats, error) {
	stats := &Stats{LeadsByStatus: map[string]int{}}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: lead counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("dashboard: scan lead counts: %w", err)
		}
		stats.LeadsByStatus[status] = count
		stats.TotalLeads += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: lead counts: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID,
	).Scan(&stats.TotalConversations); err != nil {
		return nil, fmt.Errorf("dashboard: conversation count: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = $1 AND created_at >= date_trunc('day', now())`, userID,
	).Scan(&stats.MessagesToday); err != nil {
		return nil, fmt.Errorf("dashboard: message count: %w", err)
	}

	return stats, nil
}
