package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/tracker"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool. Deployments
// shared by a whole sales team use this backend.
type PostgresStore struct {
	pool Pool
	now  func() time.Time

	// mu serializes read-modify-write mutations. Update and AppendActivity
	// rewrite the whole document in a separate statement from the read, so
	// concurrent callers would otherwise lose each other's changes.
	mu sync.Mutex
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	territory     TEXT NOT NULL DEFAULT '',
	stage         TEXT NOT NULL DEFAULT 'New',
	category      TEXT NOT NULL DEFAULT '',
	first_contact TIMESTAMPTZ NOT NULL,
	doc           JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_territory ON leads(territory);
CREATE INDEX IF NOT EXISTS idx_leads_stage ON leads(stage);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_first_contact ON leads(first_contact);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	l := lead.Clone()
	l.ID = uuid.New().String()
	if err := tracker.Initialize(l, s.now()); err != nil {
		return nil, eris.Wrap(err, "postgres: create lead")
	}

	doc, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal lead")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, territory, stage, category, first_contact, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, string(l.Territory), string(l.Stage), string(l.Category),
		l.FirstContact, doc, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return l, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Lead, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM leads WHERE id = $1`, id).Scan(&doc)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead")
	}

	var l model.Lead
	if err := json.Unmarshal(doc, &l); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal lead")
	}
	return &l, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, upd model.LeadUpdate) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tracker.ApplyUpdate(l, upd, s.now()); err != nil {
		return nil, eris.Wrapf(err, "postgres: update %s", id)
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PostgresStore) AppendActivity(ctx context.Context, id string, entry model.ActivityEntry) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tracker.ApplyActivity(l, entry, s.now()); err != nil {
		return nil, eris.Wrapf(err, "postgres: append activity %s", id)
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.Lead, error) {
	query := `SELECT doc FROM leads WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Territory != "" {
		query += ` AND territory = ` + arg(string(filter.Territory))
	}
	if filter.Stage != "" {
		query += ` AND stage = ` + arg(string(filter.Stage))
	}
	if filter.Category != "" {
		query += ` AND category = ` + arg(string(filter.Category))
	}
	if filter.From != nil {
		query += ` AND first_contact >= ` + arg(*filter.From)
	}
	if filter.To != nil {
		query += ` AND first_contact <= ` + arg(*filter.To)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		var l model.Lead
		if err := json.Unmarshal(doc, &l); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) save(ctx context.Context, l *model.Lead) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET territory = $1, stage = $2, category = $3, first_contact = $4, doc = $5, updated_at = $6
		 WHERE id = $7`,
		string(l.Territory), string(l.Stage), string(l.Category),
		l.FirstContact, doc, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save lead %s", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: save %s", l.ID)
	}
	return nil
}
