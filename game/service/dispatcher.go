package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher runs posted functions one at a time on a single goroutine. All
// room and client state is only touched from inside posted functions.
type Dispatcher struct {
	inbox chan func()
	done  chan struct{}
	log   zerolog.Logger
}

// NewDispatcher creates a dispatcher whose inbox holds size pending functions.
func NewDispatcher(size int, log zerolog.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		inbox: make(chan func(), size),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Run executes posted functions until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.inbox:
			d.safely(fn)
		}
	}
}

func (d *Dispatcher) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("panic", fmt.Sprint(r)).Msg("dispatched function panicked")
		}
	}()
	fn()
}

// Post queues fn without waiting for it to run.
func (d *Dispatcher) Post(ctx context.Context, fn func()) error {
	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.inbox <- fn:
		return nil
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues fn and waits until it has run.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := d.Post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-d.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrDispatcherStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
