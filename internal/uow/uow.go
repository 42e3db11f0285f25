package uow

import (
	"context"
	"errors"

	"github.com/yshvd/bookgo/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// maxAttempts bounds retries of transactions aborted by serialization
// failures. Hooks registered by a failed attempt are discarded.
const maxAttempts = 3

// UoW represents a unit of work.
type UoW struct {
	store repository.Store
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction, retrying on serialization failures.
// After a successful commit, it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(AfterCommit)) error,
) error {
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var hooks []AfterCommit

		err = u.store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}
		if !errors.Is(err, repository.ErrSerialization) {
			return err
		}
	}

	return err
}
