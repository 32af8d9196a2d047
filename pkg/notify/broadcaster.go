// Package notify delivers debounced "state changed" nudges to the player and admin displays.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Target is the display a nudge is meant for.
type Target int

const (
	Player Target = iota
	Admin
)

var targets = [...]Target{Player, Admin}

func (t Target) String() string {
	if t == Admin {
		return "admin"
	}
	return "player"
}

const (
	DefaultPlayerDelay = 30 * time.Millisecond
	DefaultAdminDelay  = 50 * time.Millisecond

	deliveryTimeout = 2 * time.Second
)

// Sink performs the actual delivery to a display.
type Sink interface {
	Notify(ctx context.Context, target Target) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, target Target) error

func (f SinkFunc) Notify(ctx context.Context, target Target) error { return f(ctx, target) }

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, target Target) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Option func(*Broadcaster)

func WithClock(clock clockwork.Clock) Option {
	return func(b *Broadcaster) { b.clock = clock }
}

func WithDelays(player, admin time.Duration) Option {
	return func(b *Broadcaster) {
		b.delays[Player] = player
		b.delays[Admin] = admin
	}
}

// Broadcaster keeps one single-slot queue per target, so a burst of requests collapses
// into one pending nudge. A worker per target waits the target delay and then delivers.
// Player deliveries run one at a time on the worker; admin deliveries run concurrently.
type Broadcaster struct {
	sink     Sink
	clock    clockwork.Clock
	delays   [len(targets)]time.Duration
	queues   [len(targets)]chan struct{}
	inflight sync.WaitGroup
}

func NewBroadcaster(sink Sink, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		sink:   sink,
		clock:  clockwork.NewRealClock(),
		delays: [len(targets)]time.Duration{Player: DefaultPlayerDelay, Admin: DefaultAdminDelay},
	}
	for i := range b.queues {
		b.queues[i] = make(chan struct{}, 1)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NotifyPlayer schedules a refresh of the player display. Never blocks.
func (b *Broadcaster) NotifyPlayer() { b.enqueue(Player) }

// NotifyAdmin schedules a refresh of the admin console. Never blocks.
func (b *Broadcaster) NotifyAdmin() { b.enqueue(Admin) }

func (b *Broadcaster) enqueue(t Target) {
	select {
	case b.queues[t] <- struct{}{}:
	default:
	}
}

// Run drives the workers until ctx is done and returns once every delivery has finished.
func (b *Broadcaster) Run(ctx context.Context) error {
	var workers sync.WaitGroup
	for _, t := range targets {
		workers.Add(1)
		go func() {
			defer workers.Done()
			b.work(ctx, t)
		}()
	}

	<-ctx.Done()
	workers.Wait()
	b.inflight.Wait()
	log.Debug().Msg("sync broadcaster stopped")
	return nil
}

func (b *Broadcaster) work(ctx context.Context, t Target) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.queues[t]:
		}

		select {
		case <-ctx.Done():
			return
		case <-b.clock.After(b.delays[t]):
		}

		// requests made during the wait are covered by this delivery
		select {
		case <-b.queues[t]:
		default:
		}

		if t == Player {
			b.deliver(ctx, t)
			continue
		}
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			b.deliver(ctx, t)
		}()
	}
}

func (b *Broadcaster) deliver(ctx context.Context, t Target) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	if err := b.sink.Notify(ctx, t); err != nil {
		log.Debug().Err(err).Stringer("target", t).Msg("sync notification dropped")
	}
}
