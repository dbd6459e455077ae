package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ondaradio/onda/internal/vault"
)

var (
	// ErrNoCredentialConfigured means no cloud credential exists anywhere; no generation is attempted.
	ErrNoCredentialConfigured = vault.ErrNoCredentialConfigured

	// ErrMissingInput is returned before any generation when a required title or report is blank.
	ErrMissingInput = errors.New("missing required input")

	// ErrGenerationFailed means neither the local model nor the cascade produced text.
	ErrGenerationFailed = errors.New("no provider produced text")

	errEmptyGeneration = errors.New("provider returned empty text")
	errAllCoolingDown  = errors.New("every credential is cooling down")
)

// ErrorClass is the cascade's view of why one attempt failed.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassQuotaExceeded
	ClassForbidden
	ClassNotFound
	ClassInvalidCredential
)

func (c ErrorClass) String() string {
	switch c {
	case ClassQuotaExceeded:
		return "QuotaExceeded"
	case ClassForbidden:
		return "Forbidden"
	case ClassNotFound:
		return "NotFound"
	case ClassInvalidCredential:
		return "InvalidCredential"
	default:
		return "Other"
	}
}

// CredentialFatal reports whether every other model under the same credential
// is expected to fail too.
func (c ErrorClass) CredentialFatal() bool {
	return c != ClassOther
}

// APIError is a non-2xx answer from a cloud model provider.
type APIError struct {
	StatusCode int
	Model      string
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Model, e.StatusCode, body)
}

// Classify maps a provider failure to an ErrorClass using the typed status
// code only. Transport errors, timeouts and empty output are ClassOther.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ClassOther
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return ClassQuotaExceeded
	case http.StatusForbidden:
		return ClassForbidden
	case http.StatusNotFound:
		return ClassNotFound
	case http.StatusBadRequest:
		return ClassInvalidCredential
	default:
		return ClassOther
	}
}

func statusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
