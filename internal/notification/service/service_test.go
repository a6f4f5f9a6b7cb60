package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"estekhdam/internal/notification/models"
	"estekhdam/internal/notification/service/mocks"
	"estekhdam/internal/notification/store"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemory()
	s.service = New(s.store)
}

func (s *ServiceSuite) TestInApp() {
	s.Require().NoError(s.service.InApp(s.ctx, id.UserID(3), models.TemplateCaseCreated, map[string]any{"case_id": 12}))

	list, err := s.service.ListForUser(s.ctx, id.UserID(3))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	n := list[0]
	s.Equal(models.ChannelInApp, n.Channel)
	s.Equal(models.DeliverySent, n.DeliveryState)
	s.Equal(s.now, n.SentAt)
	s.False(n.IsRead())

	var payload map[string]int
	s.Require().NoError(json.Unmarshal(n.Payload, &payload))
	s.Equal(12, payload["case_id"])
}

func (s *ServiceSuite) TestMarkRead() {
	s.Require().NoError(s.service.InApp(s.ctx, id.UserID(3), models.TemplateCaseCreated, nil))
	list, err := s.service.ListForUser(s.ctx, id.UserID(3))
	s.Require().NoError(err)
	nid := list[0].ID

	s.Run("other users cannot mark", func() {
		err := s.service.MarkRead(s.ctx, id.UserID(4), nid)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("recipient marks once", func() {
		s.Require().NoError(s.service.MarkRead(s.ctx, id.UserID(3), nid))
		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		s.Require().NoError(s.service.MarkRead(later, id.UserID(3), nid))

		list, err := s.service.ListForUser(s.ctx, id.UserID(3))
		s.Require().NoError(err)
		s.Require().NotNil(list[0].ReadAt)
		s.Equal(s.now, *list[0].ReadAt)
	})
}

func (s *ServiceSuite) TestRecordFailedSMS() {
	s.Require().NoError(s.service.RecordDelivery(s.ctx, id.UserID(5), models.ChannelSMS, models.TemplateCandidateAccount,
		map[string]string{"username": "cand5"}, models.DeliveryFailed))

	count, err := s.store.CountByTemplate(s.ctx, id.UserID(5), models.TemplateCandidateAccount)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := New(st)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC))
	boom := errors.New("connection reset")

	st.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)
	err := svc.InApp(ctx, id.UserID(3), models.TemplateCaseCreated, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.ErrorIs(t, err, boom)

	st.EXPECT().ListForUser(gomock.Any(), id.UserID(3)).Return(nil, boom)
	_, err = svc.ListForUser(ctx, id.UserID(3))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().MarkRead(gomock.Any(), id.UserID(3), id.NotificationID(9), gomock.Any()).Return(boom)
	err = svc.MarkRead(ctx, id.UserID(3), id.NotificationID(9))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
