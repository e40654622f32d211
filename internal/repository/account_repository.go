package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/declanh/threadcast/internal/models"
)

type AccountRepository interface {
	Upsert(ctx context.Context, account *models.ThreadsAccount) (int64, error)
	Get(ctx context.Context) (*models.ThreadsAccount, error)
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.ThreadsAccount, error)
	SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error
	Remove(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Upsert(ctx context.Context, account *models.ThreadsAccount) (int64, error) {
	query := `
		INSERT INTO threads_accounts (account_id, account_username, access_token, token_expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET account_username = EXCLUDED.account_username,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = now()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, account.AccountID, account.AccountUsername,
		account.AccessToken, account.TokenExpiresAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// Get returns the connected account. The pipeline publishes through a single
// Threads account; the oldest connected one wins.
func (r *accountRepository) Get(ctx context.Context) (*models.ThreadsAccount, error) {
	query := `
		SELECT id, account_id, account_username, access_token, token_expires_at, created_at, updated_at
		FROM threads_accounts ORDER BY created_at ASC LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query)

	var acc models.ThreadsAccount
	err := row.Scan(&acc.ID, &acc.AccountID, &acc.AccountUsername, &acc.AccessToken,
		&acc.TokenExpiresAt, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &acc, nil
}

func (r *accountRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.ThreadsAccount, error) {
	query := `
		SELECT id, account_id, account_username, access_token, token_expires_at, created_at, updated_at
		FROM threads_accounts WHERE token_expires_at < $1
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ThreadsAccount
	for rows.Next() {
		var acc models.ThreadsAccount
		err := rows.Scan(&acc.ID, &acc.AccountID, &acc.AccountUsername, &acc.AccessToken,
			&acc.TokenExpiresAt, &acc.CreatedAt, &acc.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &acc)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error {
	query := `
		UPDATE threads_accounts
		SET access_token = $2, token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, encryptedToken, expiresAt, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM threads_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
