package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Request is one load of a LoadAll batch.
type Request struct {
	Key      string
	Producer Producer
	Options  []LoadOption
}

// LoadAll loads every request concurrently, running at most limit at a time when limit is positive.
// Results are in request order. On the first failure the remaining callers stop waiting
// and the error is returned, wrapped with its key; the loads themselves run to completion.
func (e *Engine) LoadAll(ctx context.Context, requests []Request, limit int) ([]any, error) {
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}

	results := make([]any, len(requests))
	for i, r := range requests {
		eg.Go(func() error {
			v, err := e.Load(ctx, r.Key, r.Producer, r.Options...)
			if err != nil {
				return fmt.Errorf("load %q: %w", r.Key, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
