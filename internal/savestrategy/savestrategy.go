// Package savestrategy implements the pluggable world-save pipelines:
// Standard, Dual, Parallel, and Dynamic, each writing the three entity
// classes' triplets through package world — Standard and Dual via
// world.WriteTriplet/WriteGuildTriplet, Parallel and Dynamic via
// world.WriteTripletBodies after serializing in parallel. Standard runs
// serially; the others fan work out with errgroup, the same pattern used
// elsewhere for fanning N short-lived jobs out and joining them.
package savestrategy

import (
	"context"
	"fmt"

	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/world"
)

// Input bundles what a strategy needs to serialize one save generation.
// OnDiskWriteComplete, if set, is the disk-write-complete notification
// hook: every strategy here blocks (via FileQueue.Flush) until its writes
// are committed before Save returns, so it is always safe to fire the
// callback right before returning nil — there is no "background writer
// still draining" case to defer it to.
type Input struct {
	Dir                 string
	Registry            *entity.Registry
	Snapshot            world.Snapshot
	PagePool            *bufpool.Pool
	Concurrency         int // per-triplet FileQueue concurrency; 0 forces synchronous writes
	OnDiskWriteComplete func()
}

// Strategy serializes a world Snapshot to dir. Save is called once per
// save generation; the strategy must have committed every byte to disk
// before it returns nil.
type Strategy interface {
	Save(ctx context.Context, in Input) error
}

// completeSave fires in.OnDiskWriteComplete once every triplet has
// committed; called by each Strategy right before a successful return.
func completeSave(in Input) {
	if in.OnDiskWriteComplete != nil {
		in.OnDiskWriteComplete()
	}
}

func pageSize(pool *bufpool.Pool) int { return pool.Size() }

// mobilesJob, itemsJob, guildsJob each write one triplet; shared by every
// strategy below so the three passes stay byte-identical regardless of
// which strategy ran them.
func mobilesJob(in Input) error {
	entities := world.MobilesToEntities(in.Snapshot.Mobiles)
	if err := world.WriteTriplet(in.Dir, "Mobiles", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, entities); err != nil {
		return fmt.Errorf("savestrategy: mobiles: %w", err)
	}
	return nil
}

func itemsJob(in Input) error {
	entities := world.ItemsToEntities(in.Snapshot.Items)
	if err := world.WriteTriplet(in.Dir, "Items", in.PagePool, pageSize(in.PagePool), in.Concurrency, in.Registry, entities); err != nil {
		return fmt.Errorf("savestrategy: items: %w", err)
	}
	return nil
}

func guildsJob(in Input) error {
	entities := world.GuildsToEntities(in.Snapshot.Guilds)
	if err := world.WriteGuildTriplet(in.Dir, in.PagePool, pageSize(in.PagePool), in.Concurrency, entities); err != nil {
		return fmt.Errorf("savestrategy: guilds: %w", err)
	}
	return nil
}

// Select returns the default strategy for a given processor count:
// Standard on uniprocessor, Dual otherwise. Used when config does not
// name a specific kind.
func Select(numCPU int) Strategy {
	if numCPU < 2 {
		return Standard{}
	}
	return Dual{}
}

// SelectByKind resolves one of the four named strategies plus the
// parameterized Adaptive strategy from a config.SaveStrategy's Kind
// field (§4.11, §9's "configurable at startup, not swappable at
// runtime" redesign note). An empty or unrecognized kind falls back to
// Select(numCPU).
func SelectByKind(kind string, numCPU, parallelism int, background bool) Strategy {
	switch kind {
	case "standard":
		return Standard{}
	case "dual":
		return Dual{}
	case "parallel":
		return Parallel{Workers: parallelism}
	case "dynamic":
		return Dynamic{Workers: parallelism}
	case "adaptive":
		return NewAdaptiveStrategy(parallelism, background)
	default:
		return Select(numCPU)
	}
}
