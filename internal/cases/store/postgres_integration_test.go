//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"estekhdam/internal/cases/models"
	"estekhdam/internal/cases/store"
	identitymodels "estekhdam/internal/identity/models"
	identitystore "estekhdam/internal/identity/store"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	users    *identitystore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.users = identitystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.postgres.Truncate(s.T())
}

func (s *PostgresStoreSuite) candidate(nid, mobile string) id.UserID {
	ctx := context.Background()
	role, err := s.users.EnsureRole(ctx, id.RoleCandidate)
	s.Require().NoError(err)
	u := &identitymodels.User{FullName: "Sara Ahmadi", Mobile: mobile, NationalID: nid, PasswordHash: "h", RoleID: role.ID, IsActive: true}
	s.Require().NoError(s.users.Create(ctx, u))
	return u.ID
}

func (s *PostgresStoreSuite) TestOneOpenCasePerNationalID() {
	ctx := context.Background()
	userID := s.candidate("0012345678", "09120000001")
	salary := int64(120000000)
	first := &models.HiringCase{CandidateID: userID, FullName: "Sara Ahmadi", NationalID: "0012345678",
		Mobile: "09120000001", ApprovedSalaryAmount: &salary}
	s.Require().NoError(s.store.Create(ctx, first))
	s.Equal(models.StatusDraft, first.Status)
	s.Equal(1, first.Version)

	dup := &models.HiringCase{CandidateID: userID, FullName: "Sara Ahmadi", NationalID: "0012345678", Mobile: "09120000001"}
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrAlreadyUsed)

	s.Require().NoError(s.store.UpdateStatus(ctx, first.ID, 1, models.StatusClosed, string(models.StatusClosed), time.Now()))
	s.Require().NoError(s.store.Create(ctx, dup))

	loaded, err := s.store.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.ApprovedSalaryAmount)
	s.Equal(salary, *loaded.ApprovedSalaryAmount)
	s.Equal(2, loaded.Version)

	open, err := s.store.FindOpenByNationalID(ctx, "0012345678")
	s.Require().NoError(err)
	s.Equal(dup.ID, open.ID)

	latest, err := s.store.LatestForCandidate(ctx, userID)
	s.Require().NoError(err)
	s.Equal(dup.ID, latest.ID)
}

func (s *PostgresStoreSuite) TestListSearch() {
	ctx := context.Background()
	u1 := s.candidate("0012345678", "09120000001")
	u2 := s.candidate("0098765432", "09350000002")
	a := &models.HiringCase{CandidateID: u1, FullName: "Sara Ahmadi", NationalID: "0012345678", Mobile: "09120000001"}
	b := &models.HiringCase{CandidateID: u2, FullName: "Ali 100%", NationalID: "0098765432", Mobile: "09350000002"}
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	all, err := s.store.List(ctx, models.Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(b.ID, all[0].ID)

	byName, err := s.store.List(ctx, models.Filter{Query: "sara"})
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(a.ID, byName[0].ID)

	byMobile, err := s.store.List(ctx, models.Filter{Query: "0935"})
	s.Require().NoError(err)
	s.Require().Len(byMobile, 1)
	s.Equal(b.ID, byMobile[0].ID)

	wildcard, err := s.store.List(ctx, models.Filter{Query: "%"})
	s.Require().NoError(err)
	s.Require().Len(wildcard, 1)
	s.Equal(b.ID, wildcard[0].ID)

	u3 := s.candidate("1111111111", "09120000003")
	legacy := &models.HiringCase{CandidateID: u3, FullName: "علي\u200cرضا", NationalID: "1111111111", Mobile: "09120000003"}
	s.Require().NoError(s.store.Create(ctx, legacy))
	folded, err := s.store.List(ctx, models.Filter{Query: "علی رضا"})
	s.Require().NoError(err)
	s.Require().Len(folded, 1)
	s.Equal(legacy.ID, folded[0].ID)

	byIDs, err := s.store.List(ctx, models.Filter{IDs: []id.CaseID{a.ID}})
	s.Require().NoError(err)
	s.Require().Len(byIDs, 1)
}

func (s *PostgresStoreSuite) TestUpdateStatusAndDelete() {
	ctx := context.Background()
	userID := s.candidate("0012345678", "09120000001")
	c := &models.HiringCase{CandidateID: userID, FullName: "Sara Ahmadi", NationalID: "0012345678", Mobile: "09120000001"}
	s.Require().NoError(s.store.Create(ctx, c))

	s.ErrorIs(s.store.UpdateStatus(ctx, c.ID, 5, models.StatusClosed, "", time.Now()), sentinel.ErrConflict)
	s.ErrorIs(s.store.UpdateStatus(ctx, 999, 1, models.StatusClosed, "", time.Now()), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Delete(ctx, c.ID))
	s.ErrorIs(s.store.Delete(ctx, c.ID), sentinel.ErrNotFound)
	_, err := s.store.FindByID(ctx, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
