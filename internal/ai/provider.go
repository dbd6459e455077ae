package ai

import (
	"context"
	"time"

	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/vault"
)

// ModelCaller performs one generation against a cloud provider with an explicit
// credential and model. Failures should be *APIError when the provider answered.
type ModelCaller interface {
	Generate(ctx context.Context, credential, model, prompt string) (string, error)
}

// CredentialSource yields a fresh credential snapshot per call. vault.Vault satisfies it.
type CredentialSource interface {
	Load(ctx context.Context) ([]string, error)
}

// CredentialLister also exposes slot labels for diagnostics.
type CredentialLister interface {
	CredentialSource
	Labeled(ctx context.Context) ([]vault.Entry, error)
}

// Cooldown is the optional skip-list of recently rejected credentials.
type Cooldown interface {
	Active(ctx context.Context, credential string) bool
	Mark(ctx context.Context, credential string)
}

// AttemptRecorder persists attempt history. database.DB satisfies it.
type AttemptRecorder interface {
	LogAttempts(attempts []models.Attempt) error
}

// LocalGenerator is the local-inference fallback. It returns "" on any failure.
type LocalGenerator interface {
	Generate(ctx context.Context, model, prompt string, timeout time.Duration) string
}
