package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"estekhdam/internal/notification/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID, at time.Time) error
}

// Service writes notification rows synchronously, inside the caller's
// transaction when one is bound to ctx.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InApp records an in-app event for userID.
func (s *Service) InApp(ctx context.Context, userID id.UserID, key string, payload any) error {
	return s.RecordDelivery(ctx, userID, models.ChannelInApp, key, payload, models.DeliverySent)
}

// RecordDelivery appends a row describing an outbound message and its outcome.
func (s *Service) RecordDelivery(ctx context.Context, userID id.UserID, channel models.Channel, key string, payload any, state models.DeliveryState) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode notification payload")
	}
	n := &models.Notification{
		ToUserID:      userID,
		Channel:       channel,
		TemplateKey:   key,
		Payload:       encoded,
		SentAt:        requestcontext.Now(ctx),
		DeliveryState: state,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record notification")
	}
	s.logger.DebugContext(ctx, "notification recorded",
		"notification_id", int64(n.ID),
		"user_id", int64(userID),
		"channel", string(channel),
		"template", key,
		"state", string(state),
	)
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error) {
	out, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

// MarkRead sets read_at. Only the recipient may mark a notification.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	err := s.store.MarkRead(ctx, userID, notificationID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
