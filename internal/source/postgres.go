package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/metrics"
	"github.com/dmitrijs2005/recordkeeper/internal/migrations"
	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

// DefaultMaxConnections bounds the pool when no explicit size is configured.
const DefaultMaxConnections = 5

// PgSource is the Postgres backend: a bounded database/sql pool opened with
// the pgx driver.
type PgSource struct {
	db      *sql.DB
	logger  logging.Logger
	metrics *metrics.Metrics
}

var _ Source[*PgConn] = (*PgSource)(nil)

// PgConn is the handle lent to operations: a pooled connection for reads,
// a transaction for writes. It must not outlive the call it was lent to.
type PgConn struct {
	dbx.DBTX
	logger  logging.Logger
	metrics *metrics.Metrics
}

// Logger is the source logger, for operations that report quarantine.
func (c *PgConn) Logger() logging.Logger { return c.logger }

// Metrics is the source metrics set; it may be nil.
func (c *PgConn) Metrics() *metrics.Metrics { return c.metrics }

// Option configures a PgSource.
type Option func(*PgSource)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *PgSource) { s.logger = l }
}

// WithMetrics enables operation and quarantine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PgSource) { s.metrics = m }
}

// OpenPostgres opens a pool against dsn holding at most maxConns
// connections. A non-positive maxConns selects DefaultMaxConnections.
func OpenPostgres(ctx context.Context, dsn string, maxConns int, opts ...Option) (*PgSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return NewPgSource(db, opts...), nil
}

// NewPgSource wraps an already configured pool.
func NewPgSource(db *sql.DB, opts ...Option) *PgSource {
	s := &PgSource{db: db, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PgSource) handle(db dbx.DBTX) *PgConn {
	return &PgConn{DBTX: db, logger: s.logger, metrics: s.metrics}
}

// Conn lends fn one pooled connection.
func (s *PgSource) Conn(ctx context.Context, fn func(ctx context.Context, conn *PgConn) error) error {
	return dbx.WithConn(ctx, s.db, func(ctx context.Context, c dbx.DBTX) error {
		return fn(ctx, s.handle(c))
	})
}

// Tx lends fn a transaction; it commits only when fn returns nil.
func (s *PgSource) Tx(ctx context.Context, fn func(ctx context.Context, conn *PgConn) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.handle(tx))
	})
}

// Execute runs an arbitrary multi-step callback in one transaction, for
// sequences that are not a single operation (e.g. bootstrap). fn's error is
// returned unchanged.
func (s *PgSource) Execute(ctx context.Context, fn func(ctx context.Context, conn *PgConn) error) error {
	if err := s.Tx(ctx, fn); err != nil {
		s.logger.Error(ctx, "transaction failed", "error", err)
		return err
	}
	return nil
}

// ObserveOperation records one Read or Write and logs it when it failed.
func (s *PgSource) ObserveOperation(kind, operation string, start time.Time, err error) {
	s.metrics.ObserveOperation(kind, operation, start, err)
	if err != nil {
		s.logger.Error(context.Background(), "operation failed", "kind", kind, "operation", operation, "error", err)
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (s *PgSource) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PgSource) Close() error {
	return s.db.Close()
}

// RecordVersion is the storage shape of the composite version column:
// (author uuid, "timestamp" timestamp). Select it as
// (t.version).author, (t.version)."timestamp" and write it as
// row($n::uuid, $m::timestamp)::version.
type RecordVersion struct {
	Author    uuid.UUID
	Timestamp time.Time
}

// FromVersion is the inverse of ToVersion.
func FromVersion(v vo.Version) RecordVersion {
	return RecordVersion{Author: v.Author(), Timestamp: v.Timestamp()}
}

// ToVersion validates a stored version; a timestamp in the future fails.
func (rv RecordVersion) ToVersion() (vo.Version, error) {
	return vo.NewVersion(rv.Author, rv.Timestamp)
}

// ReconcileSet brings the set-valued child rows of owner in line with want
// without rewriting unchanged rows. deleteQuery removes rows not in $2 and
// insertQuery inserts the missing ones; both take (owner, want::text[]).
func ReconcileSet(ctx context.Context, conn *PgConn, deleteQuery, insertQuery string, owner any, want []string) error {
	if want == nil {
		want = []string{}
	}
	values := pq.Array(want)

	if _, err := conn.ExecContext(ctx, deleteQuery, owner, values); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if _, err := conn.ExecContext(ctx, insertQuery, owner, values); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
