// Package vault exposes the pool of provider credentials: one default key from
// configuration plus the key1..key4 slots kept in the settings store.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/ondaradio/onda/internal/database"
)

// Slots are the settings keys that hold stored credentials.
var Slots = []string{"key1", "key2", "key3", "key4"}

// DefaultSlot labels the credential that comes from configuration.
const DefaultSlot = "default"

var (
	ErrNoCredentialConfigured = errors.New("no provider credential configured")
	ErrUnknownSlot            = errors.New("unknown vault slot")

	errSealedNoSecret = errors.New("slot is sealed but no vault secret is configured")
)

// Store is the settings backend. database.DB satisfies it. A slot that was
// never written must be reported as database.ErrNotFound.
type Store interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Entry is one credential with the slot it came from.
type Entry struct {
	Slot       string
	Credential string
}

type Vault struct {
	store      Store
	defaultKey string
	sealer     *Sealer
	shuffle    func([]string)
}

type Option func(*Vault)

// WithSealer encrypts values written to the store and decrypts sealed values on read.
func WithSealer(s *Sealer) Option {
	return func(v *Vault) { v.sealer = s }
}

// WithShuffle replaces the random permutation applied by Load.
func WithShuffle(fn func([]string)) Option {
	return func(v *Vault) { v.shuffle = fn }
}

func New(store Store, defaultKey string, opts ...Option) *Vault {
	v := &Vault{
		store:      store,
		defaultKey: strings.TrimSpace(defaultKey),
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load returns every configured credential in a fresh random order.
// It fails with ErrNoCredentialConfigured when none exist.
func (v *Vault) Load(ctx context.Context) ([]string, error) {
	entries, err := v.Labeled(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoCredentialConfigured
	}

	creds := make([]string, len(entries))
	for i, e := range entries {
		creds[i] = e.Credential
	}
	v.shuffle(creds)
	return creds, nil
}

// Labeled returns the credentials in slot order, default first, blanks and
// duplicates removed. A failing slot read is logged and skipped.
func (v *Vault) Labeled(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []Entry
	add := func(slot, cred string) {
		cred = strings.TrimSpace(cred)
		if cred == "" || seen[cred] {
			return
		}
		seen[cred] = true
		entries = append(entries, Entry{Slot: slot, Credential: cred})
	}

	add(DefaultSlot, v.defaultKey)
	for _, slot := range Slots {
		cred, err := v.read(slot)
		if err != nil {
			slog.Warn("Vault slot unreadable", "slot", slot, "error", err)
			continue
		}
		add(slot, cred)
	}
	return entries, nil
}

// Entries returns slot -> masked credential for display. Empty slots map to "",
// sealed slots without a secret to "(sealed)" and failed reads to "(unreadable)".
func (v *Vault) Entries(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(Slots))
	for _, slot := range Slots {
		cred, err := v.read(slot)
		if err != nil {
			slog.Warn("Vault slot unreadable", "slot", slot, "error", err)
			out[slot] = "(unreadable)"
			if errors.Is(err, errSealedNoSecret) {
				out[slot] = "(sealed)"
			}
			continue
		}
		out[slot] = Mask(cred)
	}
	return out, nil
}

// Update writes the given slots. An empty value clears the slot.
func (v *Vault) Update(ctx context.Context, values map[string]string) error {
	for slot := range values {
		if !isSlot(slot) {
			return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
		}
	}
	for _, slot := range Slots {
		value, ok := values[slot]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stored := strings.TrimSpace(value)
		if stored != "" && v.sealer != nil {
			sealed, err := v.sealer.Seal(stored)
			if err != nil {
				return fmt.Errorf("seal %s: %w", slot, err)
			}
			stored = sealed
		}
		if err := v.store.SetSetting(slot, stored); err != nil {
			return fmt.Errorf("store %s: %w", slot, err)
		}
	}
	return nil
}

// read returns the plaintext value of a slot; a missing slot is "".
func (v *Vault) read(slot string) (string, error) {
	if v.store == nil {
		return "", nil
	}
	raw, err := v.store.GetSetting(slot)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", slot, err)
	}
	if raw == "" || !IsSealed(raw) {
		return raw, nil
	}
	if v.sealer == nil {
		return "", fmt.Errorf("%s: %w", slot, errSealedNoSecret)
	}
	return v.sealer.Open(raw)
}

func isSlot(s string) bool {
	for _, slot := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Mask hides all but the first six characters of a credential.
func Mask(cred string) string {
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return ""
	}
	if len(cred) <= 6 {
		return "****"
	}
	return cred[:6] + "****"
}
