package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/tracker"
)

// MemoryStore is an in-process Store guarded by a single mutex. It is the
// default backend for one-shot CLI invocations and for tests.
type MemoryStore struct {
	mu    sync.Mutex
	leads map[string]*model.Lead
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		leads: make(map[string]*model.Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the store's clock. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) Create(_ context.Context, lead *model.Lead) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := lead.Clone()
	l.ID = uuid.New().String()
	if err := tracker.Initialize(l, s.now()); err != nil {
		return nil, eris.Wrap(err, "memory: create lead")
	}

	s.leads[l.ID] = l
	return l.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "memory: get %s", id)
	}
	return l.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd model.LeadUpdate) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "memory: update %s", id)
	}

	// Apply on a copy so a validation failure leaves the stored lead intact.
	next := l.Clone()
	if err := tracker.ApplyUpdate(next, upd, s.now()); err != nil {
		return nil, eris.Wrapf(err, "memory: update %s", id)
	}

	s.leads[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Lead
	for _, l := range s.leads {
		if filter.Matches(l) {
			out = append(out, *l.Clone())
		}
	}

	// Newest first; id breaks ties so ordering is deterministic.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) AppendActivity(_ context.Context, id string, entry model.ActivityEntry) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "memory: append activity %s", id)
	}

	next := l.Clone()
	if err := tracker.ApplyActivity(next, entry, s.now()); err != nil {
		return nil, eris.Wrapf(err, "memory: append activity %s", id)
	}

	s.leads[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
