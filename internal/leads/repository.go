package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines tenant-scoped lead storage.
type Repository interface {
	List(ctx context.Context, userID string) ([]*Lead, error)
	GetByID(ctx context.Context, userID, id string) (*Lead, error)
	Create(ctx context.Context, userID string, params CreateParams) (*Lead, error)
	FindOrCreateByPhone(ctx context.Context, userID, phone, name string, conversationID *string) (*Lead, bool, error)
	UpdateName(ctx context.Context, userID, id, name string) error
	ApplyPatch(ctx context.Context, userID, id string, patch Patch) (*Lead, error)
	Delete(ctx context.Context, userID, id string) error
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool pgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const leadColumns = `id, user_id, conversation_id, name, phone, email, status, source, notes, value, created_at, updated_at`

// List returns the tenant's leads, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// GetByID fetches a lead scoped to the tenant.
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND user_id = $2`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select: %w", err)
	}
	return lead, nil
}

// Create inserts a new lead. A duplicate (user_id, phone) pair surfaces as
// ErrDuplicatePhone via the unique constraint rather than a racy pre-check.
func (r *PostgresRepository) Create(ctx context.Context, userID string, params CreateParams) (*Lead, error) {
	query := `
		INSERT INTO leads (id, user_id, conversation_id, name, phone, email, status, source, notes, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + leadColumns
	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		userID,
		params.ConversationID,
		params.Name,
		params.Phone,
		params.Email,
		params.Status,
		params.Source,
		params.Notes,
		params.Value,
	)
	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePhone
		}
		return nil, fmt.Errorf("leads: insert: %w", err)
	}
	return lead, nil
}

// FindOrCreateByPhone resolves the lead for an inbound message. The insert
// uses ON CONFLICT DO NOTHING so two near-simultaneous webhooks for the same
// sender cannot create two leads; the loser of the race falls through to the
// select. Returns the lead and whether it was created by this call.
func (r *PostgresRepository) FindOrCreateByPhone(ctx context.Context, userID, phone, name string, conversationID *string) (*Lead, bool, error) {
	insert := `
		INSERT INTO leads (id, user_id, conversation_id, name, phone, status, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, phone) DO NOTHING
		RETURNING ` + leadColumns
	lead, err := scanLead(r.pool.QueryRow(ctx, insert,
		uuid.New(), userID, conversationID, name, phone, StatusNovo, SourceWhatsApp))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("leads: find-or-create insert: %w", err)
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 AND phone = $2`
	lead, err = scanLead(r.pool.QueryRow(ctx, query, userID, phone))
	if err != nil {
		return nil, false, fmt.Errorf("leads: find-or-create select: %w", err)
	}
	return lead, false, nil
}

// UpdateName overwrites the lead's name. The webhook pipeline calls this
// whenever the provider supplies a fresher profile name.
func (r *PostgresRepository) UpdateName(ctx context.Context, userID, id, name string) error {
	query := `UPDATE leads SET name = $3, updated_at = now() WHERE id = $1 AND user_id = $2`
	ct, err := r.pool.Exec(ctx, query, id, userID, name)
	if err != nil {
		return fmt.Errorf("leads: update name: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// ApplyPatch updates only the fields the patch marks as set.
func (r *PostgresRepository) ApplyPatch(ctx context.Context, userID, id string, patch Patch) (*Lead, error) {
	query := `
		UPDATE leads
		SET name = CASE WHEN $3 THEN $4 ELSE name END,
			email = CASE WHEN $5 THEN $6 ELSE email END,
			status = CASE WHEN $7 THEN $8 ELSE status END,
			notes = CASE WHEN $9 THEN $10 ELSE notes END,
			value = CASE WHEN $11 THEN $12 ELSE value END,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + leadColumns
	row := r.pool.QueryRow(ctx, query,
		id, userID,
		patch.SetName, patch.Name,
		patch.SetEmail, patch.Email,
		patch.SetStatus, patch.Status,
		patch.SetNotes, patch.Notes,
		patch.SetValue, patch.Value,
	)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: patch: %w", err)
	}
	return lead, nil
}

// Delete removes the lead and, when one is linked, its conversation and all
// of that conversation's messages. The whole cascade runs in one transaction;
// it is the destructive operation the dashboard confirms before calling.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var conversationID *string
	err = tx.QueryRow(ctx,
		`SELECT conversation_id FROM leads WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("leads: select for delete: %w", err)
	}

	if conversationID != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM messages WHERE conversation_id = $1`, *conversationID); err != nil {
			return fmt.Errorf("leads: delete messages: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM conversations WHERE id = $1 AND user_id = $2`, *conversationID, userID); err != nil {
			return fmt.Errorf("leads: delete conversation: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM leads WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("leads: delete lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit delete: %w", err)
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.UserID,
		&lead.ConversationID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Status,
		&lead.Source,
		&lead.Notes,
		&lead.Value,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}
