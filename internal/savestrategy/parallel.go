package savestrategy

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/world"
)

// Parallel divides each entity slice across N-1 consumer goroutines (main
// goroutine is the committer), each serializing its chunk into memory
// independently; the main goroutine then commits every chunk's bodies to
// disk in original order.
type Parallel struct {
	// Workers overrides the worker count; zero means runtime.NumCPU()-1
	// (minimum 1).
	Workers int
}

func (p Parallel) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

func (p Parallel) Save(ctx context.Context, in Input) error {
	workers := p.workerCount()

	mobiles := world.MobilesToEntities(in.Snapshot.Mobiles)
	items := world.ItemsToEntities(in.Snapshot.Items)
	guilds := world.GuildsToEntities(in.Snapshot.Guilds)

	mobileBodies, err := parallelSerialize(ctx, mobiles, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Mobiles", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, mobiles, mobileBodies, true); err != nil {
		return err
	}

	itemBodies, err := parallelSerialize(ctx, items, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Items", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, items, itemBodies, true); err != nil {
		return err
	}

	guildBodies, err := parallelSerialize(ctx, guilds, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Guilds", in.PagePool, pageSize(in.PagePool), in.Concurrency, nil, guilds, guildBodies, false); err != nil {
		return err
	}

	completeSave(in)
	return nil
}

// parallelSerialize splits entities into up to `workers` contiguous
// chunks, serializes each chunk on its own goroutine, and reassembles the
// bodies slice in original order — so the resulting bytes are identical
// to a fully sequential SerializeEntities call regardless of the chunk
// count.
func parallelSerialize(ctx context.Context, entities []entity.Entity, workers int) ([][]byte, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if workers > len(entities) {
		workers = len(entities)
	}

	bodies := make([][]byte, len(entities))
	chunk := (len(entities) + workers - 1) / workers

	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < len(entities); start += chunk {
		end := start + chunk
		if end > len(entities) {
			end = len(entities)
		}
		start, end := start, end
		g.Go(func() error {
			part := world.SerializeEntities(entities[start:end])
			copy(bodies[start:end], part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}
