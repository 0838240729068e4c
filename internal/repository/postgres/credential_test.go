package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/models"
	"github.com/nkiryanov/aicheck/internal/testutil"
)

// Repo runs on a pool in the app and inside a transaction in tests
var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_CredentialRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	credential := models.Credential{
		AccessToken: "secret-token",
		IssuedAt:    mustParseTime("2024-01-01 19:00:01Z"),
		ExpiresAt:   mustParseTime("2024-01-03 19:00:01Z"),
	}

	t.Run("get not existed", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx)

			_, err := repo.Get(t.Context())

			require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
		})
	})

	t.Run("save and get", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx)

			err := repo.Save(t.Context(), credential)
			require.NoError(t, err)

			got, err := repo.Get(t.Context())
			require.NoError(t, err)
			require.Equal(t, credential.AccessToken, got.AccessToken)
			require.WithinDuration(t, credential.IssuedAt, got.IssuedAt, time.Microsecond)
			require.WithinDuration(t, credential.ExpiresAt, got.ExpiresAt, time.Microsecond)
		})
	})

	t.Run("save overwrites single row", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx)
			require.NoError(t, repo.Save(t.Context(), credential))

			fresh := models.Credential{
				AccessToken: "fresh-token",
				IssuedAt:    mustParseTime("2024-02-01 00:00:00Z"),
				ExpiresAt:   mustParseTime("2024-02-03 00:00:00Z"),
			}
			require.NoError(t, repo.Save(t.Context(), fresh))

			got, err := repo.Get(t.Context())
			require.NoError(t, err)
			require.Equal(t, "fresh-token", got.AccessToken)

			var count int
			err = tx.QueryRow(t.Context(), "SELECT count(*) FROM credentials").Scan(&count)
			require.NoError(t, err)
			require.Equal(t, 1, count, "only one credential row may exist")
		})
	})

	t.Run("expires before issued", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx)

			err := repo.Save(t.Context(), models.Credential{
				AccessToken: "broken",
				IssuedAt:    mustParseTime("2024-01-03 00:00:00Z"),
				ExpiresAt:   mustParseTime("2024-01-01 00:00:00Z"),
			})

			require.ErrorIs(t, err, apperrors.ErrCredentialInvalid)
		})
	})
}
