package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

// ResultHandler receives the outcome of each submitted pair. It is called
// from several goroutines at once.
type ResultHandler func(res *pipeline.FrameResult, err error)

// Run pulls pairs from src and submits each one on its own goroutine until
// src is exhausted or ctx is done. Cancelling ctx stops intake only; frames
// already submitted run to completion. Input buffers are released after
// their Submit returns. Run waits for outstanding submissions and stops
// early with the error if the device is lost.
//
// Run does not call Start or Stop.
func (o *Orchestrator) Run(ctx context.Context, src ports.PairSource, handle ResultHandler) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	srcCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pairs, err := src.Start(srcCtx)
	if err != nil {
		return fmt.Errorf("start source: %w", err)
	}

	// Submissions beyond the gate capacity park in Admit; the limit only
	// bounds the goroutines waiting there.
	g.SetLimit(4 * o.Config().MaxConcurrentFrames)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-gctx.Done():
			break loop
		case p, ok := <-pairs:
			if !ok {
				break loop
			}
			g.Go(func() error {
				defer release(p)
				res, err := o.Submit(gctx, p.Front, p.Back)
				if handle != nil {
					handle(res, err)
				}
				if pipeline.IsFatal(err) {
					return err
				}
				return nil
			})
		}
	}

	cancel()
	// Drain pairs the source already queued.
	go func() {
		for p := range pairs {
			release(p)
		}
	}()

	err = g.Wait()
	if cerr := src.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close source: %w", cerr)
	}
	return err
}

func release(p ports.CapturedPair) {
	if p.Front != nil {
		p.Front.Release()
	}
	if p.Back != nil {
		p.Back.Release()
	}
}
