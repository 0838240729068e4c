package repository

import (
	"context"

	"github.com/nkiryanov/aicheck/internal/models"
)

// Credential repository interface
// Holds a single record: the last credential issued by the identity service
type CredentialRepo interface {
	// Get the stored credential
	// If nothing is stored must return apperrors.ErrCredentialNotFound
	Get(ctx context.Context) (models.Credential, error)

	// Save replaces the stored credential entirely
	Save(ctx context.Context, c models.Credential) error
}
