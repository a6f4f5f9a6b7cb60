package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"estekhdam/internal/identity/models"
	"estekhdam/internal/identity/password"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
)

type UserStore interface {
	EnsureRole(ctx context.Context, name id.Role) (models.Role, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID id.UserID, hash string) error
	ListLegacyCredentials(ctx context.Context, isHashed func(string) bool) ([]models.User, error)
}

// Service owns credentials: login checks, staff provisioning and the one-off
// legacy password migration.
type Service struct {
	users  UserStore
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(users UserStore, opts ...Option) *Service {
	s := &Service{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate returns the active user matching username and password.
// Unknown users, inactive users and bad passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, plain string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := password.Verify(plain, user.PasswordHash); err != nil {
		if !password.IsHashed(user.PasswordHash) {
			s.logger.WarnContext(ctx, "login with unmigrated credential", "user_id", int64(user.ID))
		}
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// RehashLegacy converts every plaintext password in place and returns how
// many rows changed. Safe to re-run.
func (s *Service) RehashLegacy(ctx context.Context) (int, error) {
	legacy, err := s.users.ListLegacyCredentials(ctx, password.IsHashed)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list legacy credentials")
	}
	migrated := 0
	for _, u := range legacy {
		if u.PasswordHash == "" {
			s.logger.WarnContext(ctx, "skipping user with empty password", "user_id", int64(u.ID))
			continue
		}
		hash, err := password.Hash(u.PasswordHash)
		if err != nil {
			return migrated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash legacy password")
		}
		if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
			return migrated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store rehashed password")
		}
		migrated++
	}
	s.logger.InfoContext(ctx, "legacy passwords rehashed", "count", migrated)
	return migrated, nil
}

// EnsureStaff creates or updates a staff account with the given password.
// Candidate accounts are never promoted.
func (s *Service) EnsureStaff(ctx context.Context, username, plain, fullName string, role id.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if !role.IsStaff() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be recruiter or admin")
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}
	r, err := s.users.EnsureRole(ctx, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure role")
	}
	if fullName == "" {
		fullName = username
	}

	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil && !existing.Role.IsStaff():
		return nil, dErrors.New(dErrors.CodeConflict, "username belongs to a candidate account")
	case err == nil:
		existing.PasswordHash = hash
		existing.RoleID = r.ID
		existing.Role = r.Name
		existing.IsActive = true
		existing.FullName = fullName
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update staff account")
		}
		s.logger.InfoContext(ctx, "staff account updated", "user_id", int64(existing.ID), "role", string(role))
		return existing, nil
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	user := &models.User{
		FullName:     fullName,
		Username:     username,
		PasswordHash: hash,
		RoleID:       r.ID,
		Role:         r.Name,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create staff account")
	}
	s.logger.InfoContext(ctx, "staff account created", "user_id", int64(user.ID), "role", string(role))
	return user, nil
}
