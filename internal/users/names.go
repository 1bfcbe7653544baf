package users

import (
	"context"
	"errors"
	"log"
	"time"
)

// Names resolves display names for code that cannot carry a context, such
// as the lobby's listing builder. Lookups that fail fall back to the id.
type Names struct {
	dir     Directory
	timeout time.Duration
}

func NewNames(dir Directory, timeout time.Duration) *Names {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Names{dir: dir, timeout: timeout}
}

func (n *Names) DisplayName(id string) string {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	name, err := n.dir.Name(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrUnknownUser) {
			log.Printf("[DisplayName] lookup for %s failed: %v", id, err)
		}
		return id
	}
	return name
}

// Resolve maps a list of ids in order.
func (n *Names) Resolve(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, n.DisplayName(id))
	}
	return out
}
