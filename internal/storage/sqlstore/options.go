package sqlstore

import (
	"errors"

	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/workerpool"
)

// Option настраивает Store.
type Option func(*Store) error

// WithClock подменяет источник времени для CreatedAt и DeletedAt.
func WithClock(clock storage.Clock) Option {
	return func(s *Store) error {
		if clock == nil {
			return errors.New("sqlstore: nil clock")
		}
		s.clock = clock
		return nil
	}
}

// WithLogger включает логирование: SQL на уровне Debug, итоги операций на Info,
// сбои на Error.
func WithLogger(logger storage.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithPool запускает операции на внешнем пуле. Закрывать его будет владелец.
func WithPool(pool *workerpool.Pool) Option {
	return func(s *Store) error {
		if pool == nil {
			return errors.New("sqlstore: nil worker pool")
		}
		s.pool = pool
		s.ownsPool = false
		return nil
	}
}

// WithPoolSize задаёт размер собственного пула и длину очереди.
func WithPoolSize(workers, queue int) Option {
	return func(s *Store) error {
		if workers < 1 {
			return errors.New("sqlstore: pool needs at least one worker")
		}
		s.workers, s.queue = workers, queue
		return nil
	}
}
