package service

import (
	"context"
	"sync"
	"time"

	dErrors "contactlink/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for cluster mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock. The callback's context must be used for every store call inside the
// transaction so transaction-aware collaborators (the audit outbox) join it.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context, store Store) error) error
}

// defaultTxTimeout bounds a write transaction that arrives without a deadline.
const defaultTxTimeout = 5 * time.Second

// inMemoryStoreTx serializes writers with a single mutex. The contact graph
// is one entity and merges may touch any pair of clusters, so there is no
// request-local key to shard on; a global lock is the correct granularity
// for the in-memory store.
type inMemoryStoreTx struct {
	mu      sync.Mutex
	store   Store
	timeout time.Duration
}

func newInMemoryStoreTx(store Store) *inMemoryStoreTx {
	return &inMemoryStoreTx{store: store}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}
