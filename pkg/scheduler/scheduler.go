package scheduler

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("scheduler closed")

// Work is a unit of work run by a worker. ctx is cancelled when the scheduler closes.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future resolves once its work returned.
type Future[T any] struct {
	done   chan struct{}
	result Result[T]
	cancel context.CancelFunc
}

func newFuture[T any](cancel context.CancelFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

func (f *Future[T]) resolve(r Result[T]) {
	f.result = r
	close(f.done)
	f.cancel()
}

// Poll returns the result without blocking.
func (f *Future[T]) Poll() (Result[T], bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result[T]{}, false
	}
}

// Wait blocks until the work returned or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (Result[T], error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// Stop cancels the context of the work.
func (f *Future[T]) Stop() {
	f.cancel()
}

type request[T any] struct {
	fn     Work[T]
	ctx    context.Context
	future *Future[T]
}

// queue is a FIFO of pending requests.
type queue[T any] []T

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Push(t T) { *q = append(*q, t) }

func (q *queue[T]) Pop() T {
	old := *q
	x := old[0]
	var zero T
	old[0] = zero
	*q = old[1:]
	return x
}

// Scheduler runs work on a fixed number of workers. Work beyond the number
// of idle workers waits in submission order.
type Scheduler[T any] struct {
	idle      int
	pending   queue[request[T]]
	work      chan request[T]
	done      chan struct{}
	close     chan struct{}
	stopped   chan struct{}
	running   sync.WaitGroup
	closeOnce sync.Once
	mainCtx   context.Context
	cancel    context.CancelFunc
}

func NewScheduler[T any](nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler[T]{
		idle:    nbWorkers,
		work:    make(chan request[T]),
		done:    make(chan struct{}),
		close:   make(chan struct{}),
		stopped: make(chan struct{}),
		mainCtx: ctx,
		cancel:  cancel,
	}
	go s.run()
	return s
}

// AddWork queues w. After Close the returned future resolves with ErrClosed.
func (s *Scheduler[T]) AddWork(w Work[T]) *Future[T] {
	ctx, cancel := context.WithCancel(s.mainCtx)
	f := newFuture[T](cancel)
	select {
	case s.work <- request[T]{fn: w, ctx: ctx, future: f}:
	case <-s.stopped:
		f.resolve(Result[T]{Err: ErrClosed})
	}
	return f
}

// Close cancels the running work, drops the pending one and waits for the workers to return.
func (s *Scheduler[T]) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.close)
		<-s.stopped
		s.running.Wait()
	})
}

func (s *Scheduler[T]) run() {
	defer close(s.stopped)
	for {
		select {
		case r := <-s.work:
			s.pending.Push(r)
		case <-s.done:
			s.idle++
		case <-s.close:
			for s.pending.Len() > 0 {
				s.pending.Pop().future.resolve(Result[T]{Err: ErrClosed})
			}
			return
		}

		for s.idle > 0 && s.pending.Len() > 0 {
			s.dispatch(s.pending.Pop())
		}
	}
}

func (s *Scheduler[T]) dispatch(r request[T]) {
	s.idle--
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		v, err := r.fn(r.ctx)
		r.future.resolve(Result[T]{Data: v, Err: err})
		select {
		case s.done <- struct{}{}:
		case <-s.stopped:
		}
	}()
}
