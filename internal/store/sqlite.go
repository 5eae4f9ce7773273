package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/tracker"
)

// SQLiteStore implements Store using modernc.org/sqlite. The full lead record
// is kept as a JSON document; filterable attributes are mirrored into
// indexed columns.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	// mu serializes read-modify-write mutations. Update and AppendActivity
	// rewrite the whole document in a separate statement from the read, so
	// concurrent callers would otherwise lose each other's changes.
	mu sync.Mutex
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// Serialize writes through a single connection; Store mutations must be
	// atomic with respect to each other.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetClock overrides the store's clock. Test hook.
func (s *SQLiteStore) SetClock(now func() time.Time) { s.now = now }

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	territory     TEXT NOT NULL DEFAULT '',
	stage         TEXT NOT NULL DEFAULT 'New',
	category      TEXT NOT NULL DEFAULT '',
	first_contact DATETIME NOT NULL,
	doc           TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_territory ON leads(territory);
CREATE INDEX IF NOT EXISTS idx_leads_stage ON leads(stage);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_first_contact ON leads(first_contact);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	l := lead.Clone()
	l.ID = uuid.New().String()
	if err := tracker.Initialize(l, s.now()); err != nil {
		return nil, eris.Wrap(err, "sqlite: create lead")
	}

	doc, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal lead")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, territory, stage, category, first_contact, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.Territory), string(l.Stage), string(l.Category),
		l.FirstContact, string(doc), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return l, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM leads WHERE id = ?`, id)
	return scanLeadDoc(row, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id string, upd model.LeadUpdate) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tracker.ApplyUpdate(l, upd, s.now()); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update %s", id)
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, id string, entry model.ActivityEntry) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tracker.ApplyActivity(l, entry, s.now()); err != nil {
		return nil, eris.Wrapf(err, "sqlite: append activity %s", id)
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.Lead, error) {
	query := `SELECT doc FROM leads WHERE 1=1`
	var args []any

	if filter.Territory != "" {
		query += ` AND territory = ?`
		args = append(args, string(filter.Territory))
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	if filter.From != nil {
		query += ` AND first_contact >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND first_contact <= ?`
		args = append(args, *filter.To)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		var l model.Lead
		if err := json.Unmarshal([]byte(doc), &l); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

// save rewrites a lead's document and mirrored columns.
func (s *SQLiteStore) save(ctx context.Context, l *model.Lead) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET territory = ?, stage = ?, category = ?, first_contact = ?, doc = ?, updated_at = ?
		 WHERE id = ?`,
		string(l.Territory), string(l.Stage), string(l.Category),
		l.FirstContact, string(doc), l.UpdatedAt, l.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save lead %s", l.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: save %s", l.ID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLeadDoc(row scannable, id string) (*model.Lead, error) {
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	var l model.Lead
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal lead")
	}
	return &l, nil
}
