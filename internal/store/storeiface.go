// Package store persists lead records behind a backend-agnostic interface.
// Every mutation goes through the tracker rules, so derived pricing and the
// activity log behave identically across backends.
package store

import (
	"context"
	"time"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

// ListFilter specifies criteria for listing leads. Set fields are ANDed; the
// zero filter returns all leads.
type ListFilter struct {
	Territory model.Territory `json:"territory,omitempty"`
	Stage     model.Stage     `json:"stage,omitempty"`
	Category  model.Category  `json:"category,omitempty"`

	// From/To bound the first contact date, inclusive.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
//
// Mutating operations are atomic with respect to each other: each call fully
// applies before the next begins.
type Store interface {
	// Create persists a new lead, assigning its surrogate id and deriving
	// pricing fields. The institution name is display-only and never a key.
	Create(ctx context.Context, lead *model.Lead) (*model.Lead, error)

	// Get returns the lead with the given id, or model.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Lead, error)

	// Update applies a partial update, recomputing derived pricing when its
	// inputs change and logging stage/probability deltas.
	Update(ctx context.Context, id string, upd model.LeadUpdate) (*model.Lead, error)

	// List returns leads matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]model.Lead, error)

	// AppendActivity appends an activity entry and applies its side effects.
	AppendActivity(ctx context.Context, id string, entry model.ActivityEntry) (*model.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Matches reports whether a lead satisfies the filter.
func (f ListFilter) Matches(l *model.Lead) bool {
	if f.Territory != "" && l.Territory != f.Territory {
		return false
	}
	if f.Stage != "" && l.Stage != f.Stage {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.From != nil && l.FirstContact.Before(*f.From) {
		return false
	}
	if f.To != nil && l.FirstContact.After(*f.To) {
		return false
	}
	return true
}
