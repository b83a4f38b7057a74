// Package actor runs single-writer actors: one goroutine per live key,
// processing operations against that key's state strictly in order.
package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// ErrStopped is returned for operations issued after Close.
var ErrStopped = errors.New("actor system stopped")

// Loader builds the in-memory state of key from persistent storage. It runs
// inside the actor before the first operation, and again after a failed
// attempt or a Reload.
type Loader[S any] func(ctx context.Context, key string) (*S, error)

// Op is an operation against one actor's state. Ops of the same key never
// run concurrently.
type Op[S any] func(ctx context.Context, state *S) error

// Options tune a System.
type Options struct {
	// Name identifies the system in logs, e.g. "pages".
	Name string

	// IdleTimeout evicts actors that received nothing for this long.
	// Zero keeps actors alive until Close.
	IdleTimeout time.Duration
}

type request[S any] struct {
	ctx   context.Context
	op    Op[S]
	write func(ctx context.Context) error // set by Reload, runs without loaded state
	reply chan error
}

type mailbox[S any] struct {
	key   string
	inbox chan request[S] // unbuffered: a send succeeds only while the actor is alive
	dead  chan struct{}
	err   error // set before dead is closed
	refs  int   // guarded by System.mu
}

// System owns every actor of one entity kind.
type System[S any] struct {
	name string
	load Loader[S]
	idle time.Duration
	log  logger.Logger
	bg   *Background

	mu      sync.Mutex
	actors  map[string]*mailbox[S]
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSystem creates an actor system. bg receives the goroutines started by
// Tell; several systems usually share one Background.
func NewSystem[S any](opts Options, load Loader[S], bg *Background, log logger.Logger) *System[S] {
	if bg == nil {
		bg = NewBackground(log)
	}
	return &System[S]{
		name:   opts.Name,
		load:   load,
		idle:   opts.IdleTimeout,
		log:    log.With(logger.String("actor", opts.Name)),
		bg:     bg,
		actors: make(map[string]*mailbox[S]),
		stop:   make(chan struct{}),
	}
}

// Process runs op on the actor owning key and waits for its result. The
// actor is spawned and warmed on first use.
func (s *System[S]) Process(ctx context.Context, key string, op Op[S]) error {
	return s.send(ctx, key, request[S]{ctx: ctx, op: op, reply: make(chan error, 1)})
}

func (s *System[S]) send(ctx context.Context, key string, req request[S]) error {
	mb, err := s.acquire(key)
	if err != nil {
		return err
	}
	defer s.release(mb)

	select {
	case mb.inbox <- req:
	case <-mb.dead:
		return mb.err
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-s.stop:
		return ErrStopped
	}
}

// Tell schedules op without waiting. Failures are logged.
func (s *System[S]) Tell(key string, op Op[S]) {
	s.bg.Go(fmt.Sprintf("%s %s", s.name, key), func(ctx context.Context) error {
		return s.Process(ctx, key, op)
	})
}

// Reload runs write inside the actor, then rebuilds the actor's state from
// storage before any other operation is accepted. Concurrent callers see
// either the old or the new state, never a mix. write does not need a
// loaded state, so a key whose stored state no longer decodes can still be
// overwritten.
func (s *System[S]) Reload(ctx context.Context, key string, write func(ctx context.Context) error) error {
	return s.send(ctx, key, request[S]{ctx: ctx, write: write, reply: make(chan error, 1)})
}

// Live returns the number of running actors.
func (s *System[S]) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

// Close stops every actor and waits for them to exit. Pending follow-ups
// started with Tell are not awaited; see Background.Wait.
func (s *System[S]) Close() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *System[S]) acquire(key string) (*mailbox[S], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	mb, ok := s.actors[key]
	if !ok {
		mb = &mailbox[S]{
			key:   key,
			inbox: make(chan request[S]),
			dead:  make(chan struct{}),
		}
		s.actors[key] = mb
		s.wg.Add(1)
		go s.run(mb)
	}
	mb.refs++
	return mb, nil
}

func (s *System[S]) release(mb *mailbox[S]) {
	s.mu.Lock()
	mb.refs--
	s.mu.Unlock()
}

// forget removes mb from the registry if it is still the registered actor.
// Caller holds s.mu.
func (s *System[S]) forget(mb *mailbox[S]) {
	if cur, ok := s.actors[mb.key]; ok && cur == mb {
		delete(s.actors, mb.key)
	}
}

func (s *System[S]) run(mb *mailbox[S]) {
	defer s.wg.Done()

	// nil until a load succeeds
	var state *S

	var idle <-chan time.Time
	var timer *time.Timer
	if s.idle > 0 {
		timer = time.NewTimer(s.idle)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case req := <-mb.inbox:
			req.reply <- s.apply(req, &state, mb.key)
			if timer != nil {
				resetTimer(timer, s.idle)
			}

		case <-idle:
			s.mu.Lock()
			if mb.refs == 0 {
				s.forget(mb)
				s.mu.Unlock()
				mb.err = ErrStopped
				close(mb.dead)
				s.log.Debug("actor evicted", logger.String("key", mb.key))
				return
			}
			s.mu.Unlock()
			timer.Reset(s.idle)

		case <-s.stop:
			mb.err = ErrStopped
			close(mb.dead)
			return
		}
	}
}

func (s *System[S]) apply(req request[S], state **S, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("actor op panicked", logger.String("key", key), logger.String("panic", fmt.Sprint(r)))
			err = fmt.Errorf("actor %s: panic: %v", key, r)
		}
	}()

	if req.write != nil {
		if err := req.write(req.ctx); err != nil {
			return err
		}
		*state = nil
		fresh, err := s.load(req.ctx, key)
		if err != nil {
			return fmt.Errorf("reload %s: %w", key, err)
		}
		*state = fresh
		return nil
	}

	if *state == nil {
		fresh, err := s.load(req.ctx, key)
		if err != nil {
			s.log.Error("actor warm-up failed", logger.String("key", key), logger.Error(err))
			return fmt.Errorf("load %s: %w", key, err)
		}
		s.log.Debug("actor ready", logger.String("key", key))
		*state = fresh
	}
	return req.op(req.ctx, *state)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
