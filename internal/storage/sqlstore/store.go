// Package sqlstore хранит посты в SQL-базе через database/sql: запросы строит
// goqu из скомпилированных условий фильтра, выполняет и сканирует sqlx.
// Поддерживаются PostgreSQL (lib/pq или pgx) и SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // driver "postgres"
	_ "github.com/mattn/go-sqlite3" // driver "sqlite3"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/workerpool"
)

// Dialect - диалект SQL, под который строятся запросы.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const (
	tablePosts   = "posts"
	colID        = "id"
	colCreatedAt = "created_at"
	colDeletedAt = "deleted_at"
	colOwnerID   = "owner_id"
	colText      = "text"
	colContent   = "content"

	defaultWorkers = 8
	defaultQueue   = 64
)

// ErrUnknownDriver - драйвер, для которого нет диалекта.
var ErrUnknownDriver = errors.New("sqlstore: unknown driver")

//go:embed schema/*.sql
var schemas embed.FS

// Store реализует интерфейс Storage поверх SQL-базы.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	builder goqu.DialectWrapper
	ownsDB  bool

	pool     *workerpool.Pool
	ownsPool bool
	workers  int
	queue    int

	clock  storage.Clock
	logger storage.Logger
}

// row - строка таблицы posts.
type row struct {
	ID        string     `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
	OwnerID   string     `db:"owner_id"`
	Text      string     `db:"text"`
	Content   string     `db:"content"`
}

func (r row) post() *domain.Post {
	p := &domain.Post{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC(),
		OwnerID:   r.OwnerID,
		Text:      r.Text,
		Content:   domain.Content(r.Content),
	}
	if r.DeletedAt != nil {
		d := r.DeletedAt.UTC()
		p.DeletedAt = &d
	}
	return p
}

// Open открывает базу по имени драйвера: "postgres" (lib/pq), "pgx" или "sqlite3".
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	var dialect Dialect
	switch driver {
	case "postgres", "pgx":
		dialect = DialectPostgres
	case "sqlite3":
		dialect = DialectSQLite
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite допускает одного писателя; к тому же ":memory:" живёт,
		// пока жив единственный коннект.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	s, err := NewFromSQLX(db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewFromPGXPool строит хранилище поверх пула pgx. Пул остаётся за вызывающим.
func NewFromPGXPool(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, errors.New("sqlstore: nil pgx pool")
	}
	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	s, err := NewFromSQLX(db, DialectPostgres, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	// *sql.DB-обёртку закрываем сами, сам пул pgx - нет
	s.ownsDB = true
	return s, nil
}

// NewFromSQLX строит хранилище поверх готового соединения.
func NewFromSQLX(db *sqlx.DB, dialect Dialect, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil database")
	}
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", dialect)
	}

	s := &Store{
		db:       db,
		dialect:  dialect,
		builder:  goqu.Dialect(string(dialect)),
		clock:    storage.SystemClock,
		workers:  defaultWorkers,
		queue:    defaultQueue,
		ownsPool: true,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		s.pool = workerpool.New(s.workers, s.queue)
	}
	return s, nil
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Migrate создаёт таблицу и индексы, если их ещё нет. Идемпотентна.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := schemas.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Stats отдаёт состояние пула соединений.
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

// Close останавливает собственный пул воркеров и закрывает открытую нами базу.
func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post domain.NewPost) (*domain.Post, error) {
	p := &domain.Post{
		ID:      uuid.NewString(),
		OwnerID: post.OwnerID,
		Text:    post.Text,
		Content: post.Content,
	}

	err := s.run(ctx, "create", func(ctx context.Context) error {
		p.CreatedAt = s.clock()
		query, args, err := s.builder.Insert(tablePosts).
			Prepared(true).
			Rows(goqu.Record{
				colID:        p.ID,
				colCreatedAt: p.CreatedAt,
				colDeletedAt: nil,
				colOwnerID:   p.OwnerID,
				colText:      p.Text,
				colContent:   string(p.Content),
			}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		s.logSQL("create", query)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.run(ctx, "list", func(ctx context.Context) error {
		var err error
		posts, err = s.selectPosts(ctx, s.db, filter)
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
	err := s.run(ctx, "soft_delete", func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		query, args, err := s.builder.Update(tablePosts).
			Prepared(true).
			Set(goqu.Record{colDeletedAt: s.clock()}).
			Where(
				goqu.C(colOwnerID).Eq(ownerID),
				goqu.C(colID).Eq(id),
				goqu.C(colDeletedAt).IsNull(),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("failed to build update query: %w", err)
		}
		s.logSQL("soft_delete", query)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to mark post deleted: %w", err)
		}

		// Уже удалённый пост тоже находится: UPDATE его не тронул
		posts, err := s.selectPosts(ctx, tx, domain.OwnedBy(ownerID, id))
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		if len(posts) > 0 {
			post = posts[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) selectPosts(ctx context.Context, q sqlx.QueryerContext, filter domain.PostFilter) ([]*domain.Post, error) {
	query, args, err := s.selectQuery(filter)
	if err != nil {
		return nil, err
	}
	s.logSQL("list", query)

	var rows []row
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	posts := make([]*domain.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts, nil
}

// run выполняет операцию на пуле. Принятая пулом операция доводится до конца
// даже после отмены ctx вызывающего.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	detached := context.WithoutCancel(ctx)
	err := s.pool.Do(ctx, func() error { return fn(detached) })
	if err != nil {
		if s.logger != nil {
			s.logger.Error("sqlstore operation failed", "operation", op, "error", err.Error())
		}
		return storage.Classify(err)
	}
	if s.logger != nil {
		s.logger.Info("sqlstore operation: "+op, "duration_ms", time.Since(start).Milliseconds())
	}
	return nil
}

func (s *Store) logSQL(op, query string) {
	if s.logger != nil {
		s.logger.Debug("executed sql for: "+op, "query", query)
	}
}

var _ storage.Storage = (*Store)(nil)
