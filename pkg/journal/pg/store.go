package pg

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFail    = "fail"
)

type Entry struct {
	RunID      string
	RecordID   string
	EntityName string
	Status     string
	Identifier string
	StartedAt  time.Time
	FinishedAt time.Time
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store journals runs to a single table. A pgx.Conn is not safe for
// concurrent use, so every statement holds mu.
type Store struct {
	cfg  Config
	log  log.Logger
	mu   sync.Mutex
	conn *pgx.Conn
}

func NewStore(ctx context.Context, cfg Config, logger log.Logger) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = "einfiler_runs"
	}
	if !tableNameRe.MatchString(cfg.Table) {
		return nil, errors.Errorf("pg journal store invalid table name %q", cfg.Table)
	}

	conn, err := pgx.Connect(ctx, cfg.Conn)
	if err != nil {
		return nil, errors.Wrap(err, "pg journal store init conn")
	}

	if _, err := conn.Exec(ctx, createTableQuery(cfg.Table)); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrap(err, "pg journal store init table")
	}

	return &Store{
		cfg:  cfg,
		log:  log.With(logger, "component", "journal"),
		conn: conn,
	}, nil
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`create table if not exists public.%s
	(run_id text primary key, record_id text not null, entity_name text not null,
	status text not null, identifier text not null default '',
	started_at timestamptz not null, finished_at timestamptz);`, table)
}

func (s *Store) Begin(ctx context.Context, e Entry) error {
	q := fmt.Sprintf(`insert into public.%s(run_id, record_id, entity_name, status, started_at)
	values($1, $2, $3, $4, $5);`, s.cfg.Table)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(ctx, q, e.RunID, e.RecordID, e.EntityName, e.Status, e.StartedAt); err != nil {
		return errors.Wrap(err, "pg journal store insert entry")
	}

	level.Debug(s.log).Log("msg", "run journaled", "run_id", e.RunID, "record_id", e.RecordID)
	return nil
}

func (s *Store) Finish(ctx context.Context, e Entry) error {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now().UTC()
	}

	q := fmt.Sprintf(`update public.%s
	set status = $2,
	identifier = $3,
	finished_at = $4
	where run_id = $1;`, s.cfg.Table)

	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.conn.Exec(ctx, q, e.RunID, e.Status, e.Identifier, e.FinishedAt)
	if err != nil {
		return errors.Wrap(err, "pg journal store update entry")
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("pg journal store no entry for run %s", e.RunID)
	}

	return nil
}

func (s *Store) Dispose(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Close(ctx); err != nil {
		return errors.Wrap(err, "pg journal store close connection")
	}

	return nil
}
