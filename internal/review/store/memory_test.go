package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"estekhdam/internal/review/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

type ReviewStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestReviewStoreSuite(t *testing.T) {
	suite.Run(t, new(ReviewStoreSuite))
}

func (s *ReviewStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ReviewStoreSuite) addDocument(caseID id.CaseID, verdict models.Verdict) *models.Document {
	d := &models.Document{CaseID: caseID, Type: "id_card", FilePath: "cases/" + caseID.String() + "/doc.jpg", VerifyStatus: verdict}
	s.Require().NoError(s.store.CreateDocument(s.ctx, d))
	return d
}

func (s *ReviewStoreSuite) TestDocuments() {
	first := s.addDocument(1, "")
	s.addDocument(1, models.VerdictApproved)
	s.addDocument(2, models.VerdictPending)

	s.Run("lists per case in upload order", func() {
		docs, err := s.store.ListDocumentsByCase(s.ctx, 1)
		s.Require().NoError(err)
		s.Require().Len(docs, 2)
		s.Equal(first.ID, docs[0].ID)
	})

	s.Run("counts per case", func() {
		counts, err := s.store.DocumentCounts(s.ctx)
		s.Require().NoError(err)
		s.Equal(map[id.CaseID]int{1: 2, 2: 1}, counts)
	})

	s.Run("verdict update keeps other fields", func() {
		now := time.Now()
		upd := *first
		upd.VerifyStatus = models.VerdictRejected
		upd.RejectCode = models.RejectUnreadable
		upd.ReviewedBy = 9
		upd.ReviewedAt = &now
		upd.FilePath = "ignored"
		s.Require().NoError(s.store.UpdateDocumentVerdict(s.ctx, &upd))

		got, err := s.store.FindDocument(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(models.VerdictRejected, got.VerifyStatus)
		s.Equal(models.RejectUnreadable, got.RejectCode)
		s.Equal(first.FilePath, got.FilePath)
	})

	s.Run("missing document", func() {
		_, err := s.store.FindDocument(s.ctx, 99)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.UpdateDocumentVerdict(s.ctx, &models.Document{ID: 99}), sentinel.ErrNotFound)
	})
}

func (s *ReviewStoreSuite) TestRollups() {
	s.addDocument(1, "")
	s.addDocument(1, models.VerdictApproved)
	s.addDocument(2, models.VerdictApproved)
	s.Require().NoError(s.store.CreateVideo(s.ctx, &models.VideoKYC{CaseID: 1, FilePath: "v.mp4"}))
	s.Require().NoError(s.store.CreateVideo(s.ctx, &models.VideoKYC{CaseID: 2, FilePath: "w.mp4", ReviewStatus: models.VerdictRejected}))
	s.Require().NoError(s.store.CreatePhysical(s.ctx, &models.PhysicalChecklist{CaseID: 1, Verdict: models.VerdictIncomplete}))
	s.Require().NoError(s.store.CreatePhysical(s.ctx, &models.PhysicalChecklist{CaseID: 2, Verdict: models.VerdictApproved}))

	docs, err := s.store.DocumentRollup(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 2, Pending: 1}, docs)

	videos, err := s.store.VideoRollup(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 2, Pending: 1}, videos)

	physical, err := s.store.PhysicalRollup(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Rollup{Total: 2, Pending: 1}, physical)
}

func (s *ReviewStoreSuite) TestVideoOrdering() {
	old := time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.CreateVideo(s.ctx, &models.VideoKYC{CaseID: 1, FilePath: "a.mp4", SubmittedAt: old}))
	recent := &models.VideoKYC{CaseID: 2, FilePath: "b.mp4"}
	s.Require().NoError(s.store.CreateVideo(s.ctx, recent))

	videos, err := s.store.ListVideos(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(videos, 2)
	s.Equal(recent.ID, videos[0].ID)
}

func (s *ReviewStoreSuite) TestPresenceAndDeleteByCase() {
	s.addDocument(1, "")
	s.addDocument(2, "")
	s.Require().NoError(s.store.CreateVideo(s.ctx, &models.VideoKYC{CaseID: 1, FilePath: "cases/1/v.mp4"}))
	s.Require().NoError(s.store.CreatePhysical(s.ctx, &models.PhysicalChecklist{CaseID: 1, TrackingCode: "TRK"}))

	presence, err := s.store.Presence(s.ctx, []id.CaseID{1, 2, 3})
	s.Require().NoError(err)
	s.Equal(models.Presence{Documents: 1, Videos: 1, Physical: 1}, presence[1])
	s.Equal(models.Presence{Documents: 1}, presence[2])
	s.NotContains(presence, id.CaseID(3))

	paths, err := s.store.DeleteByCase(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal([]string{"cases/1/doc.jpg", "cases/1/v.mp4"}, paths)

	docs, err := s.store.ListDocumentsByCase(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(docs)
	videos, err := s.store.ListVideosByCase(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(videos)
	physical, err := s.store.ListPhysicalByCase(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(physical)

	other, err := s.store.ListDocumentsByCase(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(other, 1)
}
