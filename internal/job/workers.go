package job

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunWorkers runs one broker.StartWorker loop per function concurrently,
// letting a single process host several functions. broker.Broker binds
// one function name per StartWorker call (SPEC_FULL Part A design note
// 9); this is the caller-side generalization to multiple functions, not
// a change to that interface. Returns on ctx cancellation or as soon as
// any one worker loop returns an error, cancelling the rest.
func RunWorkers(ctx context.Context, functions ...*Function) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, fn := range functions {
		fn := fn
		if fn.broker == nil {
			return fmt.Errorf("job: %s: no broker configured", fn.Name)
		}
		group.Go(func() error {
			return fn.broker.StartWorker(ctx, fn.Name, fn)
		})
	}
	return group.Wait()
}
