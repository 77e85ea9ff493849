package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines tenant account storage.
type Repository interface {
	Create(ctx context.Context, email, passwordHash, companyName string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByAccountSID(ctx context.Context, accountSID string) (*User, error)
	UpdateSettings(ctx context.Context, userID string, settings Settings) (*User, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("accounts: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, email, password_hash, company_name,
	COALESCE(twilio_account_sid, ''), COALESCE(twilio_auth_token, ''),
	COALESCE(twilio_phone_number, ''), COALESCE(openai_api_key, ''),
	COALESCE(ai_prompt, ''), created_at, updated_at`

// Create inserts a new tenant account.
func (r *PostgresRepository) Create(ctx context.Context, email, passwordHash, companyName string) (*User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, company_name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	row := r.pool.QueryRow(ctx, query, uuid.New(), email, passwordHash, companyName)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("accounts: insert user: %w", err)
	}
	return user, nil
}

// GetByID fetches a user by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail fetches a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByAccountSID resolves the tenant that owns a Twilio account sid. This is
// the lookup the inbound webhook uses to map a callback to a tenant.
func (r *PostgresRepository) GetByAccountSID(ctx context.Context, accountSID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE twilio_account_sid = $1`
	return r.getOne(ctx, query, accountSID)
}

// UpdateSettings applies the tenant settings form in full.
func (r *PostgresRepository) UpdateSettings(ctx context.Context, userID string, settings Settings) (*User, error) {
	query := `
		UPDATE users
		SET company_name = $2,
			twilio_account_sid = NULLIF($3, ''),
			twilio_auth_token = NULLIF($4, ''),
			twilio_phone_number = NULLIF($5, ''),
			openai_api_key = NULLIF($6, ''),
			ai_prompt = NULLIF($7, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	row := r.pool.QueryRow(ctx, query,
		userID,
		settings.CompanyName,
		settings.TwilioAccountSID,
		settings.TwilioAuthToken,
		settings.TwilioPhoneNumber,
		settings.OpenAIAPIKey,
		settings.AIPrompt,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("accounts: twilio account sid already in use: %w", err)
		}
		return nil, fmt.Errorf("accounts: update settings: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("accounts: select user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CompanyName,
		&user.TwilioAccountSID,
		&user.TwilioAuthToken,
		&user.TwilioPhoneNumber,
		&user.OpenAIAPIKey,
		&user.AIPrompt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
