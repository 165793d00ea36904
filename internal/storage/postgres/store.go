package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/postfilter"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/workerpool"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
// Каждая операция выполняется на ограниченном пуле воркеров.
type Store struct {
	db     *gorm.DB
	pool   *workerpool.Pool
	clock  storage.Clock
	logger storage.Logger

	poolSize    int
	queueSize   int
	connTimeout time.Duration
	autoMigrate bool
}

// Option настраивает Store.
type Option func(*Store)

// WithPoolSize задаёт число соединений и воркеров, а также длину очереди.
func WithPoolSize(size, queue int) Option {
	return func(s *Store) {
		if size > 0 {
			s.poolSize = size
		}
		if queue >= 0 {
			s.queueSize = queue
		}
	}
}

// WithConnTimeout ограничивает ожидание свободного воркера: и места в очереди,
// и старта операции.
func WithConnTimeout(d time.Duration) Option {
	return func(s *Store) { s.connTimeout = d }
}

// WithAutoMigrate создаёт таблицу постов при старте.
func WithAutoMigrate() Option {
	return func(s *Store) { s.autoMigrate = true }
}

func WithClock(clock storage.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

func WithLogger(l storage.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, opts ...Option) (*Store, error) {
	// Логгер нужен уже для gorm.Open
	var cfg Store
	for _, opt := range opts {
		opt(&cfg)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(cfg.logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewFromDB(db, opts...)
}

// NewFromDB строит хранилище поверх готового *gorm.DB.
func NewFromDB(db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:          db,
		clock:       storage.SystemClock,
		poolSize:    10,
		queueSize:   100,
		connTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(s.poolSize)
	}

	// Выполняем миграцию схемы
	if s.autoMigrate {
		if err := db.AutoMigrate(&domain.Post{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	s.pool = workerpool.New(s.poolSize, s.queueSize)
	return s, nil
}

// Stats отдаёт состояние пула соединений.
func (s *Store) Stats() sql.DBStats {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// Close останавливает воркеров и закрывает соединения.
func (s *Store) Close() error {
	s.pool.Close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post domain.NewPost) (*domain.Post, error) {
	p := &domain.Post{
		ID:      uuid.NewString(),
		OwnerID: post.OwnerID,
		Text:    post.Text,
		Content: post.Content,
	}
	err := s.run(ctx, "create", func(db *gorm.DB) error {
		p.CreatedAt = s.clock()
		return db.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.run(ctx, "list", func(db *gorm.DB) error {
		var err error
		posts, err = find(db, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	posts, err := s.ListPosts(ctx, domain.OwnedBy(ownerID, id))
	if err != nil || len(posts) == 0 {
		return nil, err
	}
	return posts[0], nil
}

func (s *Store) SoftDeletePost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	var post *domain.Post
	err := s.run(ctx, "soft_delete", func(db *gorm.DB) error {
		// Используем транзакцию, чтобы вернуть ровно то состояние, которое записали
		return db.Transaction(func(tx *gorm.DB) error {
			err := tx.Model(&domain.Post{}).
				Where("owner_id = ? AND id = ? AND deleted_at IS NULL", ownerID, id).
				Update("deleted_at", s.clock()).Error
			if err != nil {
				return err
			}
			posts, err := find(tx, domain.OwnedBy(ownerID, id))
			if err != nil {
				return err
			}
			if len(posts) > 0 {
				post = posts[0]
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func find(db *gorm.DB, filter domain.PostFilter) ([]*domain.Post, error) {
	var posts []*domain.Post
	q, err := listQuery(db, filter)
	if err != nil {
		return nil, err
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.CreatedAt = p.CreatedAt.UTC()
		if p.DeletedAt != nil {
			d := p.DeletedAt.UTC()
			p.DeletedAt = &d
		}
	}
	return posts, nil
}

// listQuery накладывает скомпилированные условия, порядок и лимит.
func listQuery(db *gorm.DB, filter domain.PostFilter) (*gorm.DB, error) {
	q := db.Model(&domain.Post{})
	for _, term := range postfilter.Compile(filter) {
		switch t := term.(type) {
		case postfilter.OwnerIs:
			q = q.Where("owner_id = ?", t.OwnerID)
		case postfilter.IDIs:
			q = q.Where("id = ?", t.ID)
		case postfilter.DeletedIs:
			if t.Deleted {
				q = q.Where("deleted_at IS NOT NULL")
			} else {
				q = q.Where("deleted_at IS NULL")
			}
		case postfilter.TextContains:
			q = q.Where("strpos(text, ?) > 0", t.Substring)
		case postfilter.CreatedBefore:
			q = q.Where("created_at < ?", t.At.UTC())
		case postfilter.NotDeletedBy:
			q = q.Where("(deleted_at IS NULL OR deleted_at > ?)", t.At.UTC())
		default:
			return nil, fmt.Errorf("unsupported filter term %T", term)
		}
	}
	return q.Order("created_at ASC, id ASC").Limit(filter.EffectiveLimit()), nil
}

func (s *Store) run(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	start := time.Now()

	waitCtx := ctx
	if s.connTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.connTimeout)
		defer cancel()
	}
	db := s.db.WithContext(context.WithoutCancel(ctx))

	err := s.pool.Do(waitCtx, func() error { return fn(db) })
	if err != nil {
		if s.logger != nil {
			s.logger.Error("postgres operation failed", "operation", op, "error", err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("no free database worker within %s: %w", s.connTimeout, err)
		}
		return storage.Classify(err)
	}
	if s.logger != nil {
		s.logger.Info("postgres operation: "+op, "duration_ms", time.Since(start).Milliseconds())
	}
	return nil
}

// gormWriter пишет сообщения gorm (медленные запросы, ошибки) в логгер хранилища.
type gormWriter struct {
	logger storage.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.logger.Warn("gorm: " + fmt.Sprintf(format, args...))
}

func newGormLogger(l storage.Logger) logger.Interface {
	if l == nil {
		return logger.Default.LogMode(logger.Warn)
	}
	return logger.New(gormWriter{logger: l}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

var _ storage.Storage = (*Store)(nil)
