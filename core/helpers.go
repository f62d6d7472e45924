package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// withContextCancelHook runs onContextDone if ctx ends before the returned
// channel is closed.
func withContextCancelHook(ctx context.Context, onContextDone func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			onContextDone()
		case <-done:
		}
	}()
	return done
}

type worker struct {
	name string
	run  func(context.Context) error
	// onExit runs after run returns or panics.
	onExit func()
}

// runWorkers runs every worker in its own goroutine and waits for all of
// them. A panic is reported as that worker's error.
func runWorkers(ctx context.Context, workers ...worker) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	wg.Add(len(workers))
	for _, w := range workers {
		go func() {
			defer wg.Done()
			if w.onExit != nil {
				defer w.onExit()
			}
			if err := panicSafeNamedWorker(w.name, w.run)(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func panicSafeNamedWorker(name string, run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}
		return nil
	}
}
