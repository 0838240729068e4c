package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/models"
)

type CredentialRepo struct {
	DB DBTX
}

func NewCredentialRepo(db DBTX) *CredentialRepo {
	return &CredentialRepo{DB: db}
}

const getCredential = `-- name: GetCredential
SELECT access_token, issued_at, expires_at
FROM credentials
WHERE id = 1
`

func (r *CredentialRepo) Get(ctx context.Context) (models.Credential, error) {
	rows, _ := r.DB.Query(ctx, getCredential)
	c, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.Credential, error) {
		var c models.Credential
		err := row.Scan(&c.AccessToken, &c.IssuedAt, &c.ExpiresAt)
		return c, err
	})

	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, pgx.ErrNoRows):
		return c, fmt.Errorf("repo error: %w", apperrors.ErrCredentialNotFound)
	default:
		return c, fmt.Errorf("db error: %w", err)
	}
}

const saveCredential = `-- name: SaveCredential
INSERT INTO credentials (id, access_token, issued_at, expires_at, updated_at)
VALUES (1, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET access_token = EXCLUDED.access_token,
    issued_at    = EXCLUDED.issued_at,
    expires_at   = EXCLUDED.expires_at,
    updated_at   = EXCLUDED.updated_at
`

// Save overwrites the only credential row
func (r *CredentialRepo) Save(ctx context.Context, c models.Credential) error {
	_, err := r.DB.Exec(ctx, saveCredential, c.AccessToken, c.IssuedAt, c.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return fmt.Errorf("repo error: %w", apperrors.ErrCredentialInvalid)
		}

		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
