package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/models"
)

const filePerm = 0o600

// On-disk record. Field names follow the identity service login response,
// so a file written by any client of that service can be read back
type record struct {
	AccessToken string    `json:"access_token"`
	Issued      time.Time `json:".issued"`
	Expires     time.Time `json:".expires"`
}

// CredentialRepo keeps the credential in a single JSON file
// If sealer is set the file content is encrypted
type CredentialRepo struct {
	Path   string
	Sealer Sealer
}

func NewCredentialRepo(path string, sealer Sealer) *CredentialRepo {
	return &CredentialRepo{Path: path, Sealer: sealer}
}

func (r *CredentialRepo) Get(_ context.Context) (models.Credential, error) {
	var c models.Credential

	data, err := os.ReadFile(r.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, fmt.Errorf("repo error: %w", apperrors.ErrCredentialNotFound)
	case err != nil:
		return c, fmt.Errorf("read credential file: %w", err)
	}

	if r.Sealer != nil {
		data, err = r.Sealer.Open(data)
		if err != nil {
			return c, fmt.Errorf("open credential file: %w", err)
		}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return c, fmt.Errorf("decode credential file: %w", err)
	}
	if rec.AccessToken == "" {
		return c, fmt.Errorf("repo error: %w", apperrors.ErrCredentialNotFound)
	}

	return models.Credential{
		AccessToken: rec.AccessToken,
		IssuedAt:    rec.Issued,
		ExpiresAt:   rec.Expires,
	}, nil
}

func (r *CredentialRepo) Save(_ context.Context, c models.Credential) error {
	data, err := json.Marshal(record{
		AccessToken: c.AccessToken,
		Issued:      c.IssuedAt.UTC(),
		Expires:     c.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if r.Sealer != nil {
		data, err = r.Sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
	}

	return writeFileAtomic(r.Path, data, filePerm)
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path,
// so readers see either the old record or the new one, never a partial write
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
