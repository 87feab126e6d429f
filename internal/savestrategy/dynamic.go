package savestrategy

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/world"
)

// Dynamic is fork/join-style parallel iteration: workers pull the next
// unclaimed entity index from a shared cursor (rather than Parallel's
// fixed chunks) and serialize it into its own slot; a single committer —
// this function's caller, after Wait — drains every slot into the three
// sequential writers in original order.
type Dynamic struct {
	// Workers overrides the worker count; zero means runtime.NumCPU(),
	// with a minimum of 2.
	Workers int
}

func (d Dynamic) workerCount() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return Parallel{}.workerCount() + 1
}

func (d Dynamic) Save(ctx context.Context, in Input) error {
	workers := d.workerCount()

	mobiles := world.MobilesToEntities(in.Snapshot.Mobiles)
	items := world.ItemsToEntities(in.Snapshot.Items)
	guilds := world.GuildsToEntities(in.Snapshot.Guilds)

	mobileBodies, err := dynamicSerialize(ctx, mobiles, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Mobiles", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, mobiles, mobileBodies, true); err != nil {
		return err
	}

	itemBodies, err := dynamicSerialize(ctx, items, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Items", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, items, itemBodies, true); err != nil {
		return err
	}

	guildBodies, err := dynamicSerialize(ctx, guilds, workers)
	if err != nil {
		return err
	}
	if err := world.WriteTripletBodies(in.Dir, "Guilds", in.PagePool, pageSize(in.PagePool), in.Concurrency, nil, guilds, guildBodies, false); err != nil {
		return err
	}

	completeSave(in)
	return nil
}

// dynamicSerialize hands each worker the next unclaimed index off a
// shared cursor (work-stealing, unlike Parallel's static split), writing
// each serialized body straight into its index slot so the committed
// order matches entities regardless of which worker claimed which index.
func dynamicSerialize(ctx context.Context, entities []entity.Entity, workers int) ([][]byte, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if workers > len(entities) {
		workers = len(entities)
	}

	bodies := make([][]byte, len(entities))
	var cursor atomic.Int64

	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				idx := cursor.Add(1) - 1
				if idx >= int64(len(entities)) {
					return nil
				}
				solo := world.SerializeEntities(entities[idx : idx+1])
				bodies[idx] = solo[0]
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}
