package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	casemodels "estekhdam/internal/cases/models"
	casestore "estekhdam/internal/cases/store"
	notificationmodels "estekhdam/internal/notification/models"
	notificationservice "estekhdam/internal/notification/service"
	notificationstore "estekhdam/internal/notification/store"
	"estekhdam/internal/review/models"
	reviewstore "estekhdam/internal/review/store"
	"estekhdam/internal/settings"
	"estekhdam/internal/storage"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	now           time.Time
	cases         *casestore.InMemory
	store         *reviewstore.InMemory
	notifications *notificationstore.InMemory
	files         *storage.LocalStorage
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.cases = casestore.NewInMemory()
	s.store = reviewstore.NewInMemory()
	s.notifications = notificationstore.NewInMemory()
	files, err := storage.NewLocal(s.T().TempDir())
	s.Require().NoError(err)
	s.files = files
	cfg := settings.Defaults()
	s.service = New(s.store, s.cases, notificationservice.New(s.notifications), s.files, &cfg)
}

func (s *ServiceSuite) newCase(candidate id.UserID, name, nid, mobile string) *casemodels.HiringCase {
	c := &casemodels.HiringCase{CandidateID: candidate, FullName: name, NationalID: nid, Mobile: mobile}
	s.Require().NoError(s.cases.Create(s.ctx, c))
	return c
}

func upload(name string, body []byte) Upload {
	return Upload{Filename: name, Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func (s *ServiceSuite) TestSubmitDocument() {
	c := s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")

	s.Run("stores the file and a pending row", func() {
		doc, err := s.service.SubmitDocument(s.ctx, 7, "national_card", upload("card.JPEG", []byte("jpeg-bytes")))
		s.Require().NoError(err)
		s.Equal(c.ID, doc.CaseID)
		s.True(doc.IsPending())
		s.Equal(5, doc.MaxSizeHint)
		s.Equal("image/jpeg", doc.Mime)
		s.True(strings.HasPrefix(doc.FilePath, "cases/1/"))
		s.True(strings.HasSuffix(doc.FilePath, ".jpg"))
		s.Len(doc.Checksum, 64)

		_, f, err := s.service.OpenDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		defer f.Close()
		content, err := io.ReadAll(f)
		s.Require().NoError(err)
		s.Equal("jpeg-bytes", string(content))
	})

	s.Run("rejects disallowed extensions", func() {
		_, err := s.service.SubmitDocument(s.ctx, 7, "national_card", upload("card.pdf", []byte("pdf")))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown and video types", func() {
		_, err := s.service.SubmitDocument(s.ctx, 7, "passport", upload("p.jpg", []byte("x")))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.SubmitDocument(s.ctx, 7, settings.VideoKYCType, upload("v.mp4", []byte("x")))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects bodies larger than the declared limit", func() {
		big := Upload{Filename: "b.png", Size: 10, Body: bytes.NewReader(make([]byte, 6<<20))}
		_, err := s.service.SubmitDocument(s.ctx, 7, "national_card", big)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("needs an open case", func() {
		_, err := s.service.SubmitDocument(s.ctx, 8, "national_card", upload("a.jpg", []byte("x")))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		s.Require().NoError(s.cases.UpdateStatus(s.ctx, c.ID, c.Version, casemodels.StatusClosed, "", s.now))
		_, err = s.service.SubmitDocument(s.ctx, 7, "national_card", upload("a.jpg", []byte("x")))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestDecideDocument() {
	c := s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")
	doc, err := s.service.SubmitDocument(s.ctx, 7, "bank", upload("b.pdf", []byte("pdf")))
	s.Require().NoError(err)
	other, err := s.service.SubmitDocument(s.ctx, 7, "insurance", upload("i.pdf", []byte("pdf")))
	s.Require().NoError(err)

	s.Run("approve", func() {
		got, err := s.service.DecideDocument(s.ctx, 3, other.ID, models.Decision{Verdict: models.VerdictApproved, Code: models.RejectInvalid, Reason: "x"})
		s.Require().NoError(err)
		s.Equal(models.VerdictApproved, got.VerifyStatus)
		s.Empty(got.RejectCode)
		s.Empty(got.RejectReason)
		s.Equal(id.UserID(3), got.ReviewedBy)
		s.Require().NotNil(got.ReviewedAt)
		s.Equal(s.now, *got.ReviewedAt)
	})

	s.Run("reject requires a code", func() {
		_, err := s.service.DecideDocument(s.ctx, 3, doc.ID, models.Decision{Verdict: models.VerdictRejected})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("reject persists code and reason without touching other documents", func() {
		_, err := s.service.DecideDocument(s.ctx, 3, doc.ID, models.Decision{
			Verdict: models.VerdictRejected, Code: models.RejectUnreadable, Reason: "  blurry  ",
		})
		s.Require().NoError(err)
		stored, err := s.store.FindDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.RejectUnreadable, stored.RejectCode)
		s.Equal("blurry", stored.RejectReason)

		untouched, err := s.store.FindDocument(s.ctx, other.ID)
		s.Require().NoError(err)
		s.Equal(models.VerdictApproved, untouched.VerifyStatus)
	})

	s.Run("invalid verdict and missing document", func() {
		_, err := s.service.DecideDocument(s.ctx, 3, doc.ID, models.Decision{Verdict: models.VerdictIncomplete})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.DecideDocument(s.ctx, 3, 99, models.Decision{Verdict: models.VerdictApproved})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("candidate is notified per decision", func() {
		n, err := s.notifications.CountByTemplate(s.ctx, c.CandidateID, notificationmodels.TemplateDocumentReviewed)
		s.Require().NoError(err)
		s.Equal(2, n)
	})
}

func (s *ServiceSuite) TestDocumentQueue() {
	a := s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")
	b := s.newCase(8, "Ali Rezaei", "0098765432", "09350000002")
	s.newCase(9, "No Docs", "1111111111", "09350000003")
	for _, d := range []models.Document{{CaseID: a.ID, FilePath: "1"}, {CaseID: a.ID, FilePath: "2"}, {CaseID: b.ID, FilePath: "3"}} {
		d := d
		s.Require().NoError(s.store.CreateDocument(s.ctx, &d))
	}

	rows, err := s.service.DocumentQueue(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(b.ID, rows[0].Case.ID)
	s.Equal(1, rows[0].DocCount)
	s.Equal(2, rows[1].DocCount)

	filtered, err := s.service.DocumentQueue(s.ctx, "۰۹۱۲")
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(a.ID, filtered[0].Case.ID)

	c, docs, err := s.service.CaseDocuments(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.ID, c.ID)
	s.Len(docs, 2)

	_, _, err = s.service.CaseDocuments(s.ctx, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestVideos() {
	s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")
	s.newCase(8, "Ali Rezaei", "0098765432", "09350000002")
	first, err := s.service.SubmitVideo(s.ctx, 7, upload("kyc.mp4", []byte("mp4")), 30)
	s.Require().NoError(err)
	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
	second, err := s.service.SubmitVideo(later, 8, upload("kyc.mp4", []byte("mp4")), 25)
	s.Require().NoError(err)

	s.Run("most recent first", func() {
		rows, err := s.service.Videos(s.ctx, "")
		s.Require().NoError(err)
		s.Require().Len(rows, 2)
		s.Equal(second.ID, rows[0].Video.ID)
		s.Equal("Ali Rezaei", rows[0].Case.FullName)
	})

	s.Run("filtered by case", func() {
		rows, err := s.service.Videos(s.ctx, "sara")
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Equal(first.ID, rows[0].Video.ID)
	})

	s.Run("wrong format", func() {
		_, err := s.service.SubmitVideo(s.ctx, 7, upload("kyc.mov", []byte("mov")), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("decision", func() {
		v, err := s.service.DecideVideo(s.ctx, 3, first.ID, models.Decision{Verdict: models.VerdictRejected, Code: models.RejectIncomplete})
		s.Require().NoError(err)
		s.Equal(models.VerdictRejected, v.ReviewStatus)
		s.Equal(models.RejectIncomplete, v.RejectCode)

		stats, err := s.service.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(models.Rollup{Total: 2, Pending: 1}, stats.Videos)
	})
}

func (s *ServiceSuite) TestPhysical() {
	c := s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")

	item, err := s.service.MarkDelivered(s.ctx, 7, " TRK-1 ")
	s.Require().NoError(err)
	s.Equal("TRK-1", item.TrackingCode)
	s.Require().NotNil(item.DeliveredAt)

	s.Run("unknown verdict falls back to incomplete", func() {
		got, err := s.service.DecidePhysical(s.ctx, item.ID, models.Verdict("maybe"), "missing page 2")
		s.Require().NoError(err)
		s.Equal(models.VerdictIncomplete, got.Verdict)
		s.Equal("missing page 2", got.VerdictReason)
		s.Require().NotNil(got.VerdictAt)
	})

	s.Run("resubmission reopens the checklist", func() {
		again, err := s.service.MarkDelivered(s.ctx, 7, "TRK-2")
		s.Require().NoError(err)
		s.Equal(item.ID, again.ID)
		s.Empty(again.Verdict)
		s.Empty(again.VerdictReason)
		s.Nil(again.VerdictAt)

		rows, err := s.service.Physical(s.ctx, "")
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Equal("TRK-2", rows[0].Item.TrackingCode)
		s.Empty(rows[0].Item.VerdictReason)
		s.Equal(c.ID, rows[0].Case.ID)
	})

	s.Run("approved delivery is final", func() {
		_, err := s.service.DecidePhysical(s.ctx, item.ID, models.VerdictApproved, "")
		s.Require().NoError(err)
		_, err = s.service.MarkDelivered(s.ctx, 7, "TRK-3")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("validation and missing checklist", func() {
		_, err := s.service.MarkDelivered(s.ctx, 7, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.DecidePhysical(s.ctx, 99, models.VerdictApproved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestMyItems() {
	s.newCase(7, "Sara Ahmadi", "0012345678", "09120000001")
	_, err := s.service.SubmitDocument(s.ctx, 7, "bank", upload("b.png", []byte("png")))
	s.Require().NoError(err)
	_, err = s.service.SubmitVideo(s.ctx, 7, upload("v.mp4", []byte("mp4")), 12)
	s.Require().NoError(err)

	items, err := s.service.MyItems(s.ctx, 7)
	s.Require().NoError(err)
	s.Len(items.Documents, 1)
	s.Len(items.Videos, 1)
	s.Empty(items.Physical)

	_, err = s.service.MyItems(s.ctx, 8)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
