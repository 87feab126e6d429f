package savestrategy

import "context"

// adaptiveStrategy is a single parameterized strategy offered alongside
// the four named strategies: parallelism picks a worker pool size (0 or
// 1 means no fan-out), background picks whether the underlying FileQueue
// writes commit synchronously or on background goroutines.
type adaptiveStrategy struct {
	parallelism int
	background  bool
}

// NewAdaptiveStrategy builds the parameterized strategy: parallelism <= 1
// behaves like Standard; parallelism > 1 fans serialization out over a
// work-stealing pool of that size (Dynamic). background controls whether
// FileQueue writes for the underlying triplets are synchronous or
// asynchronous, independent of the serialization fan-out.
func NewAdaptiveStrategy(parallelism int, background bool) Strategy {
	return adaptiveStrategy{parallelism: parallelism, background: background}
}

func (a adaptiveStrategy) Save(ctx context.Context, in Input) error {
	if a.background && in.Concurrency == 0 {
		in.Concurrency = max(a.parallelism, 1)
	} else if !a.background {
		in.Concurrency = 0
	}

	if a.parallelism <= 1 {
		return Standard{}.Save(ctx, in)
	}
	return Dynamic{Workers: a.parallelism}.Save(ctx, in)
}
