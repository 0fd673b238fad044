package checkpoint

import "context"

// Noop never keeps snapshots, forcing a full replay for every command.
type Noop[S any] struct{}

// GetState always reports that no snapshot exists.
func (Noop[S]) GetState(ctx context.Context, _ string) (S, uint64, error) {
	var zero S
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	return zero, 0, ErrNotFound
}

// SaveState is a no-op.
func (Noop[S]) SaveState(ctx context.Context, _ string, _ uint64, _ S) error {
	return ctx.Err()
}
