// Package handle validates public page handles and assigns them to users.
package handle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`^[a-z0-9_]{4,16}$`)

var (
	ErrInvalid = errors.New("handle must be 4-16 characters of a-z, 0-9 or _")
	ErrTaken   = errors.New("handle already taken")
	ErrSame    = errors.New("handle unchanged")
)

// Normalize lowercases candidate and checks it against the handle pattern.
func Normalize(candidate string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(candidate))
	if !pattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, candidate)
	}
	return normalized, nil
}

// Path is the public page path for a handle, or "" when there is none.
func Path(handle string) string {
	if handle == "" {
		return ""
	}
	return "/" + handle
}

// Store assigns handles atomically. ClaimHandle must return ErrSame when userID
// already holds handle, ErrTaken when any other user does, and otherwise the handle
// the user held before ("" if none).
type Store interface {
	ClaimHandle(ctx context.Context, userID, handle string) (previous string, err error)
}

// Claim is the outcome of a successful handle change.
type Claim struct {
	Handle   string
	Previous string
}

// Paths lists the public paths affected by the change: the new one, then the old
// one if the user had a handle before.
func (c Claim) Paths() []string {
	paths := []string{Path(c.Handle)}
	if c.Previous != "" && c.Previous != c.Handle {
		paths = append(paths, Path(c.Previous))
	}
	return paths
}

// Registry is the single write path for handles.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Claim normalizes candidate and assigns it to userID.
func (r *Registry) Claim(ctx context.Context, userID, candidate string) (Claim, error) {
	normalized, err := Normalize(candidate)
	if err != nil {
		return Claim{}, err
	}
	previous, err := r.store.ClaimHandle(ctx, userID, normalized)
	if err != nil {
		return Claim{}, err
	}
	return Claim{Handle: normalized, Previous: previous}, nil
}
