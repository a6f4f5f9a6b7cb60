package service

import (
	"context"
	"errors"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/requestcontext"
)

const maxSessionRetries = 3

// Resolve validates the cookie token and returns the live session it names,
// stamping LastSeenAt.
func (s *Service) Resolve(ctx context.Context, raw string) (*models.Session, error) {
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing session")
	}
	claims, err := s.signer.Validate(raw)
	if err != nil {
		return nil, err
	}
	sid, err := claims.ParsedSessionID()
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	current := s.devices.ComputeFingerprint(requestcontext.UserAgent(ctx))
	var drift bool
	sess, err := s.execute(ctx, sid,
		func(sess *models.Session) error {
			if sess.UserID != userID || string(sess.Role) != claims.Role {
				return dErrors.New(dErrors.CodeUnauthorized, "session does not match token")
			}
			return nil
		},
		func(sess *models.Session) {
			sess.LastSeenAt = now
			_, drift = s.devices.CompareFingerprints(sess.DeviceFingerprintHash, current)
		},
	)
	if err != nil {
		return nil, err
	}
	if drift {
		s.logger.WarnContext(ctx, "session device fingerprint changed",
			"session_id", sid.String(),
			"user_id", int64(sess.UserID),
			"client_ip", requestcontext.ClientIP(ctx),
		)
	}
	return sess, nil
}

// execute runs a session read-modify-write, retrying lost races.
func (s *Service) execute(ctx context.Context, sid id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	var err error
	for range maxSessionRetries {
		var sess *models.Session
		sess, err = s.sessions.Execute(ctx, sid, validate, mutate)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found")
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "session busy")
	case isCoded(err):
		return nil, err
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update session")
	}
}

func isCoded(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
