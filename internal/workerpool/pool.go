// Package workerpool выполняет блокирующие операции хранилища на ограниченном
// наборе горутин, чтобы медленный запрос к БД не занимал обработчики остальных.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrCancelled - задача снята пулом (например, при остановке) и не выполнялась.
var ErrCancelled = errors.New("workerpool: job cancelled")

const (
	statePending int32 = iota
	stateRunning
	stateCancelled
)

type job struct {
	fn    func() error
	state atomic.Int32
	done  chan error
}

// Pool - фиксированное число воркеров и ограниченная очередь.
type Pool struct {
	jobs      chan *job
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New запускает workers воркеров с очередью на queue задач.
func New(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		jobs: make(chan *job, queue),
		quit: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			if !j.state.CompareAndSwap(statePending, stateRunning) {
				continue
			}
			j.done <- run(j.fn)
		}
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workerpool: job panicked: %v", r)
		}
	}()
	return fn()
}

// Do ставит fn в очередь и ждёт её завершения.
//
// ctx ограничивает ожидание свободного воркера: и места в очереди, и старта
// задачи. Задача, снятая по ctx до старта, не выполняется. Начатая задача
// доводится до конца, даже если ctx отменён: частичный результат вызывающий не
// увидит. Задача, не успевшая стартовать до Close, завершается ErrCancelled.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	j := &job{fn: fn, done: make(chan error, 1)}

	select {
	case <-p.quit:
		return ErrCancelled
	default:
	}

	select {
	case p.jobs <- j:
	case <-p.quit:
		return ErrCancelled
	case <-ctx.Done():
		return fmt.Errorf("waiting for a free worker: %w", ctx.Err())
	}

	select {
	case err := <-j.done:
		return err
	case <-p.quit:
		if j.state.CompareAndSwap(statePending, stateCancelled) {
			return ErrCancelled
		}
		return <-j.done
	case <-ctx.Done():
		if j.state.CompareAndSwap(statePending, stateCancelled) {
			return fmt.Errorf("waiting for a free worker: %w", ctx.Err())
		}
		return <-j.done
	}
}

// Close останавливает воркеров и ждёт задачи, которые уже выполняются.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
