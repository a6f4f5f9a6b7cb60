package service

import (
	"context"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
)

// AddFlash queues a message for the next page the session renders.
func (s *Service) AddFlash(ctx context.Context, sid id.SessionID, kind models.FlashKind, message string) error {
	_, err := s.execute(ctx, sid, nil, func(sess *models.Session) {
		sess.Flashes = append(sess.Flashes, models.Flash{Kind: kind, Message: message})
	})
	return err
}

// PopFlashes returns and clears queued messages.
func (s *Service) PopFlashes(ctx context.Context, sid id.SessionID) ([]models.Flash, error) {
	var popped []models.Flash
	_, err := s.execute(ctx, sid, nil, func(sess *models.Session) {
		popped = sess.Flashes
		sess.Flashes = nil
	})
	if err != nil {
		return nil, err
	}
	return popped, nil
}
