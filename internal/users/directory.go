// Package users maps connection identities to display names.
package users

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/scythe504/mission-backend/internal"
)

// ErrUnknownUser is returned by Name for ids that were never named or have
// been removed.
var ErrUnknownUser = errors.New("unknown user")

// Directory stores one display name per connection identity.
type Directory interface {
	SetName(ctx context.Context, id, name string) error
	Name(ctx context.Context, id string) (string, error)
	Remove(ctx context.Context, id string) error
}

// ValidateName enforces the display name rules shared by every backend.
func ValidateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > internal.MaxUsernameLength {
		return internal.ErrIllegalName
	}
	return nil
}

// DefaultNamer hands out sequential User#N names.
type DefaultNamer struct {
	count atomic.Uint64
}

func (d *DefaultNamer) Next() string {
	return fmt.Sprintf("User#%d", d.count.Add(1))
}
