//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	casemodels "estekhdam/internal/cases/models"
	casestore "estekhdam/internal/cases/store"
	identitymodels "estekhdam/internal/identity/models"
	identitystore "estekhdam/internal/identity/store"
	"estekhdam/internal/review/models"
	"estekhdam/internal/review/store"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
	"estekhdam/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	cases    *casestore.PostgresStore
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
	s.cases = casestore.NewPostgres(s.postgres.DB)
	s.users = identitystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.postgres.Truncate(s.T())
}

func (s *PostgresStoreSuite) newCase(nid string) id.CaseID {
	ctx := context.Background()
	role, err := s.users.EnsureRole(ctx, id.RoleCandidate)
	s.Require().NoError(err)
	u := &identitymodels.User{FullName: "Sara", Mobile: "0912" + nid[:7], NationalID: nid, PasswordHash: "h", RoleID: role.ID, IsActive: true}
	s.Require().NoError(s.users.Create(ctx, u))
	c := &casemodels.HiringCase{CandidateID: u.ID, FullName: "Sara", NationalID: nid, Mobile: u.Mobile}
	s.Require().NoError(s.cases.Create(ctx, c))
	return c.ID
}

func (s *PostgresStoreSuite) TestDocumentVerdictRoundTrip() {
	ctx := context.Background()
	caseID := s.newCase("0012345678")
	doc := &models.Document{CaseID: caseID, Type: "id_card", FilePath: "cases/1/a.jpg", Mime: "image/jpeg", SizeBytes: 10, MaxSizeHint: 5}
	s.Require().NoError(s.store.CreateDocument(ctx, doc))
	s.Positive(int64(doc.ID))

	loaded, err := s.store.FindDocument(ctx, doc.ID)
	s.Require().NoError(err)
	s.True(loaded.IsPending())
	s.Nil(loaded.ReviewedAt)

	now := time.Now().UTC().Truncate(time.Microsecond)
	loaded.VerifyStatus = models.VerdictRejected
	loaded.RejectCode = models.RejectInvalid
	loaded.RejectReason = "expired"
	loaded.ReviewedAt = &now
	s.Require().NoError(s.store.UpdateDocumentVerdict(ctx, loaded))

	again, err := s.store.FindDocument(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.RejectInvalid, again.RejectCode)
	s.Equal("expired", again.RejectReason)
	s.Require().NotNil(again.ReviewedAt)
	s.True(now.Equal(*again.ReviewedAt))
	s.Equal(id.UserID(0), again.ReviewedBy)

	_, err = s.store.FindDocument(ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRollupsAndPresence() {
	ctx := context.Background()
	a := s.newCase("0012345678")
	b := s.newCase("0098765432")
	s.Require().NoError(s.store.CreateDocument(ctx, &models.Document{CaseID: a, Type: "id_card", FilePath: "x"}))
	s.Require().NoError(s.store.CreateDocument(ctx, &models.Document{CaseID: a, Type: "photo", FilePath: "y", VerifyStatus: models.VerdictApproved}))
	s.Require().NoError(s.store.CreateDocument(ctx, &models.Document{CaseID: b, Type: "photo", FilePath: "z", VerifyStatus: models.VerdictApproved}))
	s.Require().NoError(s.store.CreateVideo(ctx, &models.VideoKYC{CaseID: a, FilePath: "v"}))
	s.Require().NoError(s.store.CreatePhysical(ctx, &models.PhysicalChecklist{CaseID: b, Verdict: models.VerdictApproved}))

	docs, err := s.store.DocumentRollup(ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 2, Pending: 1}, docs)

	videos, err := s.store.VideoRollup(ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 1, Pending: 1}, videos)

	physical, err := s.store.PhysicalRollup(ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 1, Pending: 0}, physical)

	presence, err := s.store.Presence(ctx, []id.CaseID{a, b})
	s.Require().NoError(err)
	s.Equal(models.Presence{Documents: 2, Videos: 1}, presence[a])
	s.Equal(models.Presence{Documents: 1, Physical: 1}, presence[b])

	counts, err := s.store.DocumentCounts(ctx)
	s.Require().NoError(err)
	s.Equal(2, counts[a])
}

func (s *PostgresStoreSuite) TestDeleteByCaseInTransaction() {
	ctx := context.Background()
	caseID := s.newCase("0012345678")
	s.Require().NoError(s.store.CreateDocument(ctx, &models.Document{CaseID: caseID, Type: "id_card", FilePath: "cases/a.jpg"}))
	s.Require().NoError(s.store.CreateVideo(ctx, &models.VideoKYC{CaseID: caseID, FilePath: "cases/v.mp4"}))
	s.Require().NoError(s.store.CreatePhysical(ctx, &models.PhysicalChecklist{CaseID: caseID, TrackingCode: "TRK1"}))

	var paths []string
	err := tx.NewPostgresRunner(s.postgres.DB).RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if paths, err = s.store.DeleteByCase(ctx, caseID); err != nil {
			return err
		}
		return s.cases.Delete(ctx, caseID)
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"cases/a.jpg", "cases/v.mp4"}, paths)

	docs, err := s.store.ListDocumentsByCase(ctx, caseID)
	s.Require().NoError(err)
	s.Empty(docs)
	physical, err := s.store.ListPhysicalByCase(ctx, caseID)
	s.Require().NoError(err)
	s.Empty(physical)
}
