package savestrategy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dual spawns one worker to serialize items while the calling goroutine
// serializes mobiles then guilds, joining before returning. This is the
// ≥2-processor default.
type Dual struct{}

func (Dual) Save(ctx context.Context, in Input) error {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return itemsJob(in)
	})

	if err := mobilesJob(in); err != nil {
		_ = g.Wait()
		return err
	}
	if err := guildsJob(in); err != nil {
		_ = g.Wait()
		return err
	}

	if err := g.Wait(); err != nil {
		return err
	}
	completeSave(in)
	return nil
}
