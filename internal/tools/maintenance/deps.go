package maintenance

import (
	"context"

	"github.com/louisbranch/okr/internal/services/objective/storage"
)

// journalStore is the storage surface the maintenance modes need.
type journalStore interface {
	storage.EventStore
	storage.ViewStore
	VerifyAggregate(ctx context.Context, aggregateID string) (int, error)
	Close() error
}
