package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"contactlink/internal/contact/models"
	"contactlink/internal/contact/store"
	"contactlink/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *store.InMemoryStore
	ctx   context.Context
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.ctx = context.Background()
	s.base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) createPrimary(email, phone string, at time.Time) *models.Contact {
	c := models.NewPrimary(optional(email), optional(phone), at)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *InMemoryStoreSuite) createSecondary(email, phone string, primaryID int64, at time.Time) *models.Contact {
	c := models.NewSecondary(optional(email), optional(phone), primaryID, at)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *InMemoryStoreSuite) TestCreateAssignsSequentialIDs() {
	first := s.createPrimary("a@example.com", "", s.base)
	second := s.createPrimary("b@example.com", "", s.base)

	s.Equal(int64(1), first.ID)
	s.Equal(int64(2), second.ID)
}

func (s *InMemoryStoreSuite) TestCreateRejectsContactWithoutIdentifiers() {
	err := s.store.Create(s.ctx, models.NewPrimary(nil, nil, s.base))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestCreateRejectsLinkToNonPrimary() {
	primary := s.createPrimary("a@example.com", "111", s.base)
	secondary := s.createSecondary("b@example.com", "", primary.ID, s.base.Add(time.Second))

	s.Run("link target is a secondary", func() {
		err := s.store.Create(s.ctx, models.NewSecondary(optional("c@example.com"), nil, secondary.ID, s.base))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("link target does not exist", func() {
		err := s.store.Create(s.ctx, models.NewSecondary(optional("c@example.com"), nil, 999, s.base))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestFindByEmailOrPhoneMatchesEitherField() {
	s.createPrimary("a@example.com", "111", s.base)
	s.createPrimary("b@example.com", "222", s.base.Add(time.Second))
	s.createPrimary("c@example.com", "333", s.base.Add(2*time.Second))

	found, err := s.store.FindByEmailOrPhone(s.ctx, optional("c@example.com"), optional("111"))
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(int64(1), found[0].ID)
	s.Equal(int64(3), found[1].ID)
}

func (s *InMemoryStoreSuite) TestFindByEmailOrPhoneIgnoresAbsentIdentifier() {
	// A stored nil phone must not match a request with a nil phone.
	s.createPrimary("a@example.com", "", s.base)

	found, err := s.store.FindByEmailOrPhone(s.ctx, optional("other@example.com"), nil)
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *InMemoryStoreSuite) TestFindOrdersByCreatedAtThenID() {
	// Seed out of id order relative to creation time.
	s.createPrimary("late@example.com", "111", s.base.Add(time.Hour))
	s.createPrimary("early@example.com", "111", s.base)

	found, err := s.store.FindByEmailOrPhone(s.ctx, nil, optional("111"))
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(int64(2), found[0].ID)
	s.Equal(int64(1), found[1].ID)
}

func (s *InMemoryStoreSuite) TestFindByPrimaryIDsReturnsFullClusters() {
	p1 := s.createPrimary("a@example.com", "111", s.base)
	s.createSecondary("a2@example.com", "", p1.ID, s.base.Add(time.Second))
	p2 := s.createPrimary("b@example.com", "222", s.base.Add(2*time.Second))
	s.createSecondary("b2@example.com", "", p2.ID, s.base.Add(3*time.Second))
	s.createPrimary("unrelated@example.com", "999", s.base.Add(4*time.Second))

	members, err := s.store.FindByPrimaryIDs(s.ctx, []int64{p1.ID, p2.ID})
	s.Require().NoError(err)
	s.Require().Len(members, 4)
	s.Equal([]int64{1, 2, 3, 4}, memberIDs(members))
}

func (s *InMemoryStoreSuite) TestDemoteAndRelink() {
	p1 := s.createPrimary("a@example.com", "111", s.base)
	p2 := s.createPrimary("b@example.com", "222", s.base.Add(time.Second))
	dependent := s.createSecondary("b2@example.com", "", p2.ID, s.base.Add(2*time.Second))

	later := s.base.Add(time.Minute)
	s.Require().NoError(s.store.DemoteToSecondary(s.ctx, p2.ID, p1.ID, later))
	s.Require().NoError(s.store.RelinkSecondaries(s.ctx, p2.ID, p1.ID, later))

	members, err := s.store.FindByPrimaryIDs(s.ctx, []int64{p1.ID})
	s.Require().NoError(err)
	s.Require().Len(members, 3)
	for _, c := range members[1:] {
		s.Equal(models.LinkPrecedenceSecondary, c.LinkPrecedence)
		s.Require().NotNil(c.LinkedID)
		s.Equal(p1.ID, *c.LinkedID)
	}

	// The former dependent now carries the survivor's id and a fresh
	// updated_at.
	for _, c := range members {
		if c.ID == dependent.ID {
			s.Equal(later, c.UpdatedAt)
		}
	}
}

func (s *InMemoryStoreSuite) TestDemoteRejectsMissingOrNonPrimaryTarget() {
	p1 := s.createPrimary("a@example.com", "111", s.base)
	secondary := s.createSecondary("a2@example.com", "", p1.ID, s.base.Add(time.Second))

	s.Run("unknown contact", func() {
		err := s.store.DemoteToSecondary(s.ctx, 999, p1.ID, s.base)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("target is not a primary", func() {
		err := s.store.DemoteToSecondary(s.ctx, p1.ID, secondary.ID, s.base)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestReadsReturnCopies() {
	s.createPrimary("a@example.com", "111", s.base)

	found, err := s.store.FindByEmailOrPhone(s.ctx, optional("a@example.com"), nil)
	s.Require().NoError(err)
	s.Require().Len(found, 1)

	*found[0].Email = "mutated@example.com"
	found[0].LinkPrecedence = models.LinkPrecedenceSecondary

	again, err := s.store.FindByEmailOrPhone(s.ctx, optional("a@example.com"), nil)
	s.Require().NoError(err)
	s.Require().Len(again, 1)
	s.Equal("a@example.com", *again[0].Email)
	s.Equal(models.LinkPrecedencePrimary, again[0].LinkPrecedence)
}

func memberIDs(contacts []*models.Contact) []int64 {
	ids := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	return ids
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
