package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/vault"
)

// DefaultModels is the candidate list tried within one credential, most capable first.
var DefaultModels = []string{
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-1.5-flash",
	"gemini-2.0-flash-exp",
}

// Result is what one cascade run produced. Text is empty when every attempt failed.
type Result struct {
	Text      string
	Model     string
	LastError error
	Attempts  []models.Attempt
}

// Cascade walks credentials then models and returns the first non-empty generation.
// It performs no logging or persistence of its own.
type Cascade struct {
	caller   ModelCaller
	creds    CredentialSource
	models   []string
	deadline time.Duration
	cooldown Cooldown
	now      func() time.Time
}

type CascadeOption func(*Cascade)

// WithDeadline bounds a whole cascade run. Zero disables the bound.
func WithDeadline(d time.Duration) CascadeOption {
	return func(c *Cascade) { c.deadline = d }
}

// WithCooldown enables the recently-rejected credential skip-list.
func WithCooldown(cd Cooldown) CascadeOption {
	return func(c *Cascade) { c.cooldown = cd }
}

func WithClock(now func() time.Time) CascadeOption {
	return func(c *Cascade) { c.now = now }
}

func NewCascade(caller ModelCaller, creds CredentialSource, candidateModels []string, opts ...CascadeOption) *Cascade {
	if len(candidateModels) == 0 {
		candidateModels = DefaultModels
	}
	c := &Cascade{
		caller: caller,
		creds:  creds,
		models: candidateModels,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models returns the candidate list in priority order.
func (c *Cascade) Models() []string {
	return append([]string(nil), c.models...)
}

// Generate runs the cascade for one prompt. Only ErrNoCredentialConfigured is
// returned as an error; every provider failure is folded into the Result.
func (c *Cascade) Generate(ctx context.Context, prompt, label string) (Result, error) {
	creds, err := c.creds.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(creds) == 0 {
		return Result{}, ErrNoCredentialConfigured
	}

	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	var res Result
	for _, cred := range creds {
		if ctx.Err() != nil {
			break
		}
		if c.cooldown != nil && c.cooldown.Active(ctx, cred) {
			res.Attempts = append(res.Attempts, models.Attempt{
				Label:      label,
				Credential: vault.Mask(cred),
				Outcome:    models.OutcomeSkipped,
				CreatedAt:  c.now(),
			})
			continue
		}

		for _, model := range c.models {
			if ctx.Err() != nil {
				break
			}

			start := c.now()
			text, callErr := c.caller.Generate(ctx, cred, model, prompt)
			att := models.Attempt{
				Label:      label,
				Credential: vault.Mask(cred),
				Model:      model,
				LatencyMs:  c.now().Sub(start).Milliseconds(),
				CreatedAt:  start,
			}

			if callErr == nil && strings.TrimSpace(text) != "" {
				att.Outcome = models.OutcomeSuccess
				res.Attempts = append(res.Attempts, att)
				res.Text = text
				res.Model = model
				res.LastError = nil
				return res, nil
			}

			if callErr == nil {
				callErr = fmt.Errorf("%s: %w", model, errEmptyGeneration)
				att.Outcome = models.OutcomeEmpty
			} else {
				att.Outcome = models.OutcomeFailure
			}
			class := Classify(callErr)
			att.ErrorClass = class.String()
			att.StatusCode = statusCode(callErr)
			att.Error = callErr.Error()
			res.Attempts = append(res.Attempts, att)
			res.LastError = callErr

			if class.CredentialFatal() {
				if c.cooldown != nil {
					c.cooldown.Mark(ctx, cred)
				}
				break
			}
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if res.LastError == nil || !errors.Is(res.LastError, ctxErr) {
			res.LastError = fmt.Errorf("cascade stopped: %w", ctxErr)
		}
	}
	if res.LastError == nil {
		// Only reachable when every credential was skipped.
		res.LastError = errAllCoolingDown
	}
	return res, nil
}
