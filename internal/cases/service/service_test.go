package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"estekhdam/internal/cases/models"
	casestore "estekhdam/internal/cases/store"
	identitymodels "estekhdam/internal/identity/models"
	"estekhdam/internal/identity/password"
	identitystore "estekhdam/internal/identity/store"
	notificationmodels "estekhdam/internal/notification/models"
	notificationservice "estekhdam/internal/notification/service"
	notificationstore "estekhdam/internal/notification/store"
	reviewmodels "estekhdam/internal/review/models"
	reviewstore "estekhdam/internal/review/store"
	"estekhdam/internal/sms/mocks"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/tx"
	"estekhdam/pkg/requestcontext"
	"estekhdam/pkg/textnorm"
)

type removedFiles struct {
	paths []string
}

func (r *removedFiles) Delete(_ context.Context, rel string) error {
	r.paths = append(r.paths, rel)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	ctrl          *gomock.Controller
	sender        *mocks.MockSender
	cases         *casestore.InMemory
	users         *identitystore.InMemory
	reviews       *reviewstore.InMemory
	notifications *notificationstore.InMemory
	files         *removedFiles
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC))
	s.ctrl = gomock.NewController(s.T())
	s.sender = mocks.NewMockSender(s.ctrl)
	s.cases = casestore.NewInMemory()
	s.users = identitystore.NewInMemory()
	s.reviews = reviewstore.NewInMemory()
	s.notifications = notificationstore.NewInMemory()
	s.files = &removedFiles{}
	s.service = New(
		s.cases,
		s.users,
		s.reviews,
		notificationservice.New(s.notifications),
		s.sender,
		tx.NewLockRunner(),
		Config{DefaultPassword: "Cand#2025", LoginURL: "https://hr.example/login"},
		WithFileRemover(s.files),
	)
}

func request(nid, mobile string) models.CreateCaseRequest {
	return models.CreateCaseRequest{
		FullName:           "Sara Ahmadi",
		NationalID:         nid,
		Mobile:             mobile,
		Gender:             "female",
		MaritalStatus:      "single",
		ContractType:       "full_time",
		OrgPosition:        "Teller",
		Degree:             "bachelor",
		ApprovedSalaryType: "fixed",
	}
}

func (s *ServiceSuite) expectSMS(mobile string, err error) {
	s.sender.EXPECT().Send(gomock.Any(), mobile, gomock.Any()).Return(err)
}

func (s *ServiceSuite) countUsers() int {
	n := 0
	for i := id.UserID(1); i < 50; i++ {
		if _, err := s.users.FindByID(s.ctx, i); err == nil {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) countCases() int {
	all, err := s.cases.List(s.ctx, models.Filter{})
	s.Require().NoError(err)
	return len(all)
}

func (s *ServiceSuite) TestCreateCase() {
	s.Run("creates identity, case and notifications", func() {
		s.sender.EXPECT().Send(gomock.Any(), "09120000001", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, text string) error {
				s.Contains(text, "cand1")
				s.Contains(text, "Cand#2025")
				s.Contains(text, "https://hr.example/login")
				return nil
			})

		res, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09120000001"))
		s.Require().NoError(err)
		s.Equal(models.OutcomeCreated, res.Outcome)
		s.Equal("cand1", res.Username)
		s.Empty(res.SMSWarning)
		s.Equal(models.StatusDraft, res.Case.Status)
		s.Equal(id.UserID(42), res.Case.CreatedBy)
		s.Equal(1, s.countUsers())
		s.Equal(1, s.countCases())

		user, err := s.users.FindByID(s.ctx, res.Case.CandidateID)
		s.Require().NoError(err)
		s.Equal("cand1", user.Username)
		s.Equal(id.RoleCandidate, user.Role)
		s.NoError(password.Verify("Cand#2025", user.PasswordHash))

		inApp, err := s.notifications.CountByTemplate(s.ctx, user.ID, notificationmodels.TemplateCaseCreated)
		s.Require().NoError(err)
		s.Equal(1, inApp)

		list, err := s.notifications.ListForUser(s.ctx, user.ID)
		s.Require().NoError(err)
		var smsRow *notificationmodels.Notification
		for i := range list {
			if list[i].Channel == notificationmodels.ChannelSMS {
				smsRow = &list[i]
			}
		}
		s.Require().NotNil(smsRow)
		s.Equal(notificationmodels.DeliverySent, smsRow.DeliveryState)
		s.NotContains(string(smsRow.Payload), "Cand#2025")
	})

	s.Run("open case for the national id blocks creation", func() {
		res, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09129999999"))
		s.Require().NoError(err)
		s.Equal(models.OutcomeOpenCaseExists, res.Outcome)
		s.Equal(int64(1), res.OpenCaseID)
		s.Nil(res.Case)
		s.Equal(1, s.countUsers())
		s.Equal(1, s.countCases())
	})

	s.Run("mobile in use asks for confirmation", func() {
		res, err := s.service.CreateCase(s.ctx, 42, request("0098765432", "09120000001"))
		s.Require().NoError(err)
		s.Equal(models.OutcomeConfirmMobile, res.Outcome)
		s.Require().NotNil(res.ExistingUser)
		s.Equal("cand1", res.ExistingUser.Username)
		s.Equal(1, s.countUsers())
		s.Equal(1, s.countCases())
	})

	s.Run("force create proceeds despite the mobile", func() {
		s.expectSMS("09120000001", nil)
		req := request("0098765432", "09120000001")
		req.ForceCreate = true
		res, err := s.service.CreateCase(s.ctx, 42, req)
		s.Require().NoError(err)
		s.Equal(models.OutcomeCreated, res.Outcome)
		s.Equal("cand2", res.Username)
		s.Equal(2, s.countUsers())
		s.Equal(2, s.countCases())
	})
}

func (s *ServiceSuite) TestCreateCaseSMSFailureIsAWarning() {
	s.expectSMS("09120000001", errors.New("gateway down"))

	res, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09120000001"))
	s.Require().NoError(err)
	s.Equal(models.OutcomeCreated, res.Outcome)
	s.NotEmpty(res.SMSWarning)
	s.Equal(1, s.countCases())

	list, err := s.notifications.ListForUser(s.ctx, res.Case.CandidateID)
	s.Require().NoError(err)
	states := map[notificationmodels.Channel]notificationmodels.DeliveryState{}
	for _, n := range list {
		states[n.Channel] = n.DeliveryState
	}
	s.Equal(notificationmodels.DeliveryFailed, states[notificationmodels.ChannelSMS])
	s.Equal(notificationmodels.DeliverySent, states[notificationmodels.ChannelInApp])
}

func (s *ServiceSuite) TestCreateCaseReusesReturningCandidate() {
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09120000001"))
	s.Require().NoError(err)
	s.Require().NoError(s.users.UpdatePassword(s.ctx, first.Case.CandidateID, "changed"))
	s.Require().NoError(s.service.Close(s.ctx, first.Case.ID))

	second, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09121111111"))
	s.Require().NoError(err)
	s.Equal(models.OutcomeCreated, second.Outcome)
	s.Equal(first.Case.CandidateID, second.Case.CandidateID)
	s.Equal("cand1", second.Username)
	s.Equal(1, s.countUsers())
	s.Equal(2, s.countCases())

	user, err := s.users.FindByID(s.ctx, second.Case.CandidateID)
	s.Require().NoError(err)
	s.Equal("09121111111", user.Mobile)
	s.NoError(password.Verify("Cand#2025", user.PasswordHash))
}

func (s *ServiceSuite) TestCreateCaseReturningCandidateWithSharedMobile() {
	s.sender.EXPECT().Send(gomock.Any(), "09120000001", gomock.Any()).Return(nil).Times(3)

	_, err := s.service.CreateCase(s.ctx, 42, request("0012345678", "09120000001"))
	s.Require().NoError(err)
	forced := request("0098765432", "09120000001")
	forced.ForceCreate = true
	second, err := s.service.CreateCase(s.ctx, 42, forced)
	s.Require().NoError(err)
	s.Require().Equal(models.OutcomeCreated, second.Outcome)
	s.Require().NoError(s.service.Close(s.ctx, second.Case.ID))

	again, err := s.service.CreateCase(s.ctx, 42, request("0098765432", "09120000001"))
	s.Require().NoError(err)
	s.Equal(models.OutcomeCreated, again.Outcome)
	s.Equal(second.Case.CandidateID, again.Case.CandidateID)
}

func (s *ServiceSuite) TestCreateCaseRejectsStaffNationalID() {
	role, err := s.users.EnsureRole(s.ctx, id.RoleRecruiter)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, &identitymodels.User{
		FullName: "Recruiter", Username: "rec", NationalID: "0012345678", PasswordHash: "x",
		RoleID: role.ID, Role: role.Name, IsActive: true,
	}))

	_, err = s.service.CreateCase(s.ctx, 42, request("0012345678", "09120000001"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(0, s.countCases())
}

func (s *ServiceSuite) TestCreateCaseValidation() {
	_, err := s.service.CreateCase(s.ctx, 42, models.CreateCaseRequest{FullName: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) createCase(nid, mobile string) *models.HiringCase {
	s.expectSMS(mobile, nil)
	res, err := s.service.CreateCase(s.ctx, 42, request(nid, mobile))
	s.Require().NoError(err)
	s.Require().Equal(models.OutcomeCreated, res.Outcome)
	return res.Case
}

func (s *ServiceSuite) TestClose() {
	c := s.createCase("0012345678", "09120000001")
	_, err := s.service.Advance(s.ctx, c.ID, models.StatusCandidateComplete, 0)
	s.Require().NoError(err)

	s.Run("closes from any open status", func() {
		s.Require().NoError(s.service.Close(s.ctx, c.ID))
		got, err := s.service.GetCase(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, got.Status)
	})

	s.Run("closing again is a no-op", func() {
		s.Require().NoError(s.service.Close(s.ctx, c.ID))
		got, err := s.service.GetCase(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(3, got.Version)
	})

	s.Run("unknown case", func() {
		err := s.service.Close(s.ctx, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestAdvance() {
	c := s.createCase("0012345678", "09120000001")

	s.Run("follows the transition table", func() {
		got, err := s.service.Advance(s.ctx, c.ID, models.StatusCandidateComplete, 1)
		s.Require().NoError(err)
		s.Equal(models.StatusCandidateComplete, got.Status)
		s.Equal(string(models.StatusCandidateComplete), got.CurrentStep)
		s.Equal(2, got.Version)
	})

	s.Run("rejects a skipped step", func() {
		_, err := s.service.Advance(s.ctx, c.ID, models.StatusVideoReview, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("rejects a stale version", func() {
		_, err := s.service.Advance(s.ctx, c.ID, models.StatusDocsReview, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects unknown statuses", func() {
		_, err := s.service.Advance(s.ctx, c.ID, models.Status("hired"), 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("closed is terminal", func() {
		got, err := s.service.Advance(s.ctx, c.ID, models.StatusClosed, 0)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, got.Status)

		_, err = s.service.Advance(s.ctx, c.ID, models.StatusDocsReview, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestDelete() {
	c := s.createCase("0012345678", "09120000001")
	other := s.createCase("0098765432", "09350000002")
	s.Require().NoError(s.reviews.CreateDocument(s.ctx, &reviewmodels.Document{CaseID: c.ID, Type: "id_card", FilePath: "cases/1/a.jpg"}))
	s.Require().NoError(s.reviews.CreateDocument(s.ctx, &reviewmodels.Document{CaseID: other.ID, Type: "id_card", FilePath: "cases/2/b.jpg"}))
	s.Require().NoError(s.reviews.CreateVideo(s.ctx, &reviewmodels.VideoKYC{CaseID: c.ID, FilePath: "cases/1/v.mp4"}))
	s.Require().NoError(s.reviews.CreatePhysical(s.ctx, &reviewmodels.PhysicalChecklist{CaseID: c.ID, TrackingCode: "T1"}))

	s.Require().NoError(s.service.Delete(s.ctx, c.ID))

	_, err := s.service.GetCase(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	docs, err := s.reviews.ListDocumentsByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(docs)
	videos, err := s.reviews.ListVideosByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(videos)
	physical, err := s.reviews.ListPhysicalByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(physical)
	s.ElementsMatch([]string{"cases/1/a.jpg", "cases/1/v.mp4"}, s.files.paths)

	kept, err := s.reviews.ListDocumentsByCase(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Len(kept, 1)

	err = s.service.Delete(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDashboard() {
	a := s.createCase("0012345678", "09120000001")
	s.createCase("0098765432", "09350000002")
	s.Require().NoError(s.reviews.CreateDocument(s.ctx, &reviewmodels.Document{CaseID: a.ID, Type: "id_card", FilePath: "x"}))
	s.Require().NoError(s.reviews.CreateVideo(s.ctx, &reviewmodels.VideoKYC{CaseID: a.ID, FilePath: "v", ReviewStatus: reviewmodels.VerdictApproved}))

	s.Run("all cases with rollups", func() {
		d, err := s.service.Dashboard(s.ctx, "")
		s.Require().NoError(err)
		s.Require().Len(d.Rows, 2)
		s.Equal(reviewmodels.Rollup{Total: 1, Pending: 1}, d.Stats.Documents)
		s.Equal(reviewmodels.Rollup{Total: 1, Pending: 0}, d.Stats.Videos)
		s.Equal(reviewmodels.Rollup{}, d.Stats.Physical)
	})

	s.Run("localized digits match ascii records", func() {
		d, err := s.service.Dashboard(s.ctx, "۰۰۱۲۳۴")
		s.Require().NoError(err)
		s.Equal("001234", d.Query)
		s.Require().Len(d.Rows, 1)
		s.Equal(a.ID, d.Rows[0].Case.ID)
		s.True(d.Rows[0].HasDocs)
		s.True(d.Rows[0].HasVideo)
		s.False(d.Rows[0].HasPhysical)
	})
}

func (s *ServiceSuite) TestDashboardFindsPersianNamesAsTyped() {
	names := []string{"علي رضايي", "زین\u200cالعابدین کریمی", "كريم"}
	for i, name := range names {
		req := request(fmt.Sprintf("00%08d", i+1), fmt.Sprintf("091200000%02d", i+1))
		req.FullName = name
		req.Normalize()
		s.expectSMS(req.Mobile, nil)
		res, err := s.service.CreateCase(s.ctx, 42, req)
		s.Require().NoError(err)
		s.Require().Equal(models.OutcomeCreated, res.Outcome)
	}

	for _, name := range names {
		s.Run(name, func() {
			d, err := s.service.Dashboard(s.ctx, name)
			s.Require().NoError(err)
			s.Require().Len(d.Rows, 1)
			s.Equal(textnorm.Query(name), d.Rows[0].Case.FullName)
		})
	}

	s.Run("persian spelling finds arabic spelling", func() {
		d, err := s.service.Dashboard(s.ctx, "رضایی")
		s.Require().NoError(err)
		s.Len(d.Rows, 1)
	})
}

func (s *ServiceSuite) TestGetCandidate() {
	c := s.createCase("0012345678", "09120000001")

	profile, err := s.service.GetCandidate(s.ctx, c.CandidateID)
	s.Require().NoError(err)
	s.Equal("cand1", profile.User.Username)
	s.Require().NotNil(profile.Case)
	s.Equal(c.ID, profile.Case.ID)

	latest, err := s.service.CaseForCandidate(s.ctx, c.CandidateID)
	s.Require().NoError(err)
	s.Equal(c.ID, latest.ID)

	_, err = s.service.GetCandidate(s.ctx, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestNotificationPayloads() {
	c := s.createCase("0012345678", "09120000001")
	s.Require().NoError(s.service.Close(s.ctx, c.ID))

	n, err := s.notifications.CountByTemplate(s.ctx, c.CandidateID, notificationmodels.TemplateCaseClosed)
	s.Require().NoError(err)
	s.Equal(1, n)

	list, err := s.notifications.ListForUser(s.ctx, c.CandidateID)
	s.Require().NoError(err)
	for _, row := range list {
		if row.TemplateKey != notificationmodels.TemplateCaseClosed {
			continue
		}
		var payload map[string]int64
		s.Require().NoError(json.Unmarshal(row.Payload, &payload))
		s.Equal(int64(c.ID), payload["case_id"])
	}
}
