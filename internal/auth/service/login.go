package service

import (
	"context"
	"errors"

	"estekhdam/internal/auth/device"
	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/requestcontext"
)

// Login checks credentials and opens a session for the client described by
// the request context (IP and User-Agent).
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	ip := requestcontext.ClientIP(ctx)
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, username, ip); err != nil {
			if dErrors.HasCode(err, dErrors.CodeRateLimited) {
				s.countLogin("locked")
			}
			return nil, err
		}
	}

	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.countLogin("invalid")
			s.logger.WarnContext(ctx, "login rejected",
				"client_ip", ip,
				"request_id", requestcontext.RequestID(ctx),
			)
			if s.limiter != nil {
				if lerr := s.limiter.RecordFailure(ctx, username, ip); lerr != nil {
					s.logger.ErrorContext(ctx, "record login failure", "error", lerr)
				}
			}
		} else if !dErrors.HasCode(err, dErrors.CodeValidation) {
			s.countLogin("error")
		}
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Clear(ctx, username, ip); err != nil {
			s.logger.ErrorContext(ctx, "clear login failures", "error", err)
		}
	}

	now := requestcontext.Now(ctx)
	ua := requestcontext.UserAgent(ctx)
	sess := &models.Session{
		ID:                    id.NewSessionID(),
		UserID:                user.ID,
		Role:                  user.Role,
		Username:              user.Username,
		DeviceDisplayName:     device.ParseUserAgent(ua),
		DeviceFingerprintHash: s.devices.ComputeFingerprint(ua),
		ClientIP:              ip,
		CreatedAt:             now,
		ExpiresAt:             now.Add(s.ttl),
		LastSeenAt:            now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.countLogin("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	signed, err := s.signer.Issue(sess.ID, sess.UserID, sess.Role, sess.ExpiresAt)
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		s.countLogin("error")
		return nil, err
	}

	s.countLogin("success")
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", int64(user.ID),
		"role", string(user.Role),
		"device", sess.DeviceDisplayName,
	)
	return &models.LoginResult{Token: signed, Session: sess}, nil
}

// Logout deletes the session. An already missing session is not an error.
func (s *Service) Logout(ctx context.Context, sid id.SessionID) error {
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	s.logger.InfoContext(ctx, "user logged out", "session_id", sid.String())
	return nil
}
