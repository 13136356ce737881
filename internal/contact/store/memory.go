package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"contactlink/internal/contact/models"
	"contactlink/pkg/platform/sentinel"
)

// InMemoryStore keeps the contact graph in process memory. It backs unit
// tests and the no-database dev mode, intentionally favoring clarity over
// performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	contacts map[int64]models.Contact
	nextID   int64
}

// NewInMemory constructs an empty in-memory contact store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{contacts: make(map[int64]models.Contact)}
}

// FindByEmailOrPhone returns non-deleted contacts whose email or phone
// exactly matches a supplied identifier, in (created_at, id) order. Absent
// identifiers are excluded from the predicate.
func (s *InMemoryStore) FindByEmailOrPhone(_ context.Context, email, phoneNumber *string) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Contact
	for id := range s.contacts {
		c := s.contacts[id]
		if c.DeletedAt != nil {
			continue
		}
		if matchesField(c.Email, email) || matchesField(c.PhoneNumber, phoneNumber) {
			matched = append(matched, copyContact(c))
		}
	}
	sortByAge(matched)
	return matched, nil
}

// FindByPrimaryIDs returns the full membership of every cluster headed by one
// of the given ids: rows whose id or linked_id is in the set, non-deleted,
// in (created_at, id) order.
func (s *InMemoryStore) FindByPrimaryIDs(_ context.Context, primaryIDs []int64) ([]*models.Contact, error) {
	idSet := make(map[int64]struct{}, len(primaryIDs))
	for _, id := range primaryIDs {
		idSet[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*models.Contact
	for id := range s.contacts {
		c := s.contacts[id]
		if c.DeletedAt != nil {
			continue
		}
		_, headsCluster := idSet[c.ID]
		linkedIn := c.LinkedID != nil && containsID(idSet, *c.LinkedID)
		if headsCluster || linkedIn {
			members = append(members, copyContact(c))
		}
	}
	sortByAge(members)
	return members, nil
}

// Create assigns the next id and stores the contact. A secondary whose
// LinkedID does not reference an active primary is rejected so link chains
// can never be written.
func (s *InMemoryStore) Create(_ context.Context, contact *models.Contact) error {
	if contact.Email == nil && contact.PhoneNumber == nil {
		return sentinel.ErrConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.LinkedID != nil {
		target, ok := s.contacts[*contact.LinkedID]
		if !ok || target.DeletedAt != nil || target.LinkPrecedence != models.LinkPrecedencePrimary {
			return sentinel.ErrConflict
		}
	}

	s.nextID++
	contact.ID = s.nextID
	s.contacts[contact.ID] = *contact
	return nil
}

// DemoteToSecondary turns the contact into a secondary of newPrimaryID and
// refreshes updated_at.
func (s *InMemoryStore) DemoteToSecondary(_ context.Context, contactID, newPrimaryID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[contactID]
	if !ok || c.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	target, ok := s.contacts[newPrimaryID]
	if !ok || target.DeletedAt != nil || target.LinkPrecedence != models.LinkPrecedencePrimary {
		return sentinel.ErrConflict
	}

	c.LinkPrecedence = models.LinkPrecedenceSecondary
	c.LinkedID = &newPrimaryID
	c.UpdatedAt = now
	s.contacts[contactID] = c
	return nil
}

// RelinkSecondaries re-points every contact linked to oldPrimaryID directly
// at newPrimaryID, preserving the one-level-of-indirection invariant after a
// primary is demoted.
func (s *InMemoryStore) RelinkSecondaries(_ context.Context, oldPrimaryID, newPrimaryID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.contacts {
		c := s.contacts[id]
		if c.DeletedAt != nil || c.LinkedID == nil || *c.LinkedID != oldPrimaryID {
			continue
		}
		linked := newPrimaryID
		c.LinkedID = &linked
		c.UpdatedAt = now
		s.contacts[id] = c
	}
	return nil
}

// Ping always succeeds; memory is never unavailable.
func (s *InMemoryStore) Ping(_ context.Context) error { return nil }

func matchesField(have, want *string) bool {
	return have != nil && want != nil && *have == *want
}

func containsID(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}

func copyContact(c models.Contact) *models.Contact {
	out := c
	if c.Email != nil {
		email := *c.Email
		out.Email = &email
	}
	if c.PhoneNumber != nil {
		phone := *c.PhoneNumber
		out.PhoneNumber = &phone
	}
	if c.LinkedID != nil {
		linked := *c.LinkedID
		out.LinkedID = &linked
	}
	if c.DeletedAt != nil {
		deleted := *c.DeletedAt
		out.DeletedAt = &deleted
	}
	return &out
}

func sortByAge(contacts []*models.Contact) {
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].OlderThan(contacts[j])
	})
}
