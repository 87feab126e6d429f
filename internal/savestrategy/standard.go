package savestrategy

import "context"

// Standard is the single-thread strategy: three serial passes over
// mobiles, items, and guilds on the calling goroutine, the uniprocessor
// default.
type Standard struct{}

func (Standard) Save(ctx context.Context, in Input) error {
	if err := mobilesJob(in); err != nil {
		return err
	}
	if err := itemsJob(in); err != nil {
		return err
	}
	if err := guildsJob(in); err != nil {
		return err
	}
	completeSave(in)
	return nil
}
