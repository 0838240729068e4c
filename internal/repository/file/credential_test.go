package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/models"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_CredentialRepo(t *testing.T) {
	credential := models.Credential{
		AccessToken: "secret-token",
		IssuedAt:    mustParseTime("2024-01-01 19:00:01Z"),
		ExpiresAt:   mustParseTime("2024-01-03 19:00:01Z"),
	}

	t.Run("get not existed", func(t *testing.T) {
		repo := NewCredentialRepo(filepath.Join(t.TempDir(), "auth_token.json"), nil)

		_, err := repo.Get(t.Context())

		require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
	})

	t.Run("save and get", func(t *testing.T) {
		repo := NewCredentialRepo(filepath.Join(t.TempDir(), "auth_token.json"), nil)

		err := repo.Save(t.Context(), credential)
		require.NoError(t, err)

		got, err := repo.Get(t.Context())
		require.NoError(t, err)
		require.Equal(t, credential.AccessToken, got.AccessToken)
		require.WithinDuration(t, credential.IssuedAt, got.IssuedAt, 0)
		require.WithinDuration(t, credential.ExpiresAt, got.ExpiresAt, 0)
	})

	t.Run("save replaces record", func(t *testing.T) {
		repo := NewCredentialRepo(filepath.Join(t.TempDir(), "auth_token.json"), nil)
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
		require.WithinDuration(t, fresh.ExpiresAt, got.ExpiresAt, 0)
	})

	t.Run("file is private and creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "auth_token.json")
		repo := NewCredentialRepo(path, nil)

		require.NoError(t, repo.Save(t.Context(), credential))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file must not be left behind")
	})

	t.Run("read identity service record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth_token.json")
		content := `{
			"access_token": "<ACCESS_TOKEN>",
			".issued": "2019-06-25T11:29:55.3410986Z",
			".expires": "2019-06-27T11:29:55.3410986Z"
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		got, err := NewCredentialRepo(path, nil).Get(t.Context())

		require.NoError(t, err)
		require.Equal(t, "<ACCESS_TOKEN>", got.AccessToken)
		require.Equal(t, 2019, got.ExpiresAt.Year())
		require.Equal(t, 27, got.ExpiresAt.Day())
		require.Equal(t, 25, got.IssuedAt.Day())
	})

	t.Run("corrupted file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth_token.json")
		require.NoError(t, os.WriteFile(path, []byte("not a json"), 0o600))

		_, err := NewCredentialRepo(path, nil).Get(t.Context())

		require.Error(t, err)
		require.NotErrorIs(t, err, apperrors.ErrCredentialNotFound)
	})

	t.Run("sealed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth_token.json")
		sealer, err := NewSecretboxSealer("test-secret-key")
		require.NoError(t, err)
		repo := NewCredentialRepo(path, sealer)

		require.NoError(t, repo.Save(t.Context(), credential))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "secret-token", "token must not be stored in plain text")

		got, err := repo.Get(t.Context())
		require.NoError(t, err)
		require.Equal(t, credential.AccessToken, got.AccessToken)
	})

	t.Run("sealed with other key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth_token.json")
		sealer, err := NewSecretboxSealer("test-secret-key")
		require.NoError(t, err)
		require.NoError(t, NewCredentialRepo(path, sealer).Save(t.Context(), credential))

		other, err := NewSecretboxSealer("other-secret-key")
		require.NoError(t, err)

		_, err = NewCredentialRepo(path, other).Get(t.Context())

		require.ErrorIs(t, err, ErrUnsealFailed)
	})
}

func TestSecretboxSealer(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		_, err := NewSecretboxSealer("")
		require.Error(t, err)
	})

	t.Run("different nonce every time", func(t *testing.T) {
		s, err := NewSecretboxSealer("secret")
		require.NoError(t, err)

		first, err := s.Seal([]byte("payload"))
		require.NoError(t, err)
		second, err := s.Seal([]byte("payload"))
		require.NoError(t, err)

		require.NotEqual(t, first, second)
	})

	t.Run("too short input", func(t *testing.T) {
		s, err := NewSecretboxSealer("secret")
		require.NoError(t, err)

		_, err = s.Open([]byte("short"))
		require.ErrorIs(t, err, ErrUnsealFailed)
	})
}
