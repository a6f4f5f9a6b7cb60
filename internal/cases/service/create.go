package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"estekhdam/internal/cases/models"
	identitymodels "estekhdam/internal/identity/models"
	"estekhdam/internal/identity/password"
	notificationmodels "estekhdam/internal/notification/models"
	"estekhdam/internal/sms"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/requestcontext"
)

const smsWarning = "Case created, but the SMS with login details could not be sent."

// CreateCase opens a case for a new or returning candidate. A duplicate open
// case or a mobile already in use (without ForceCreate) is reported through
// the result outcome, not as an error. req must already be normalized.
func (s *Service) CreateCase(ctx context.Context, actor id.UserID, req models.CreateCaseRequest) (result *models.CreateCaseResult, err error) {
	ctx, span := s.startSpan(ctx, "cases.CreateCase", attribute.Bool("force", req.ForceCreate))
	defer func() { endSpan(span, err) }()

	if req.FullName == "" || req.NationalID == "" || req.Mobile == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name, national id and mobile are required")
	}
	hash, err := password.Hash(s.cfg.DefaultPassword)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash default password")
	}

	var candidate *identitymodels.User
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		result, candidate = nil, nil
		var err error
		result, candidate, err = s.createInTx(ctx, actor, req, hash)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "national id or username already in use")
		}
		return nil, translateCaseErr(err, "failed to create case")
	}
	if s.metrics != nil {
		s.metrics.IncrementCaseOutcome(string(result.Outcome))
	}
	if result.Outcome != models.OutcomeCreated {
		s.logger.InfoContext(ctx, "case creation short-circuited",
			"outcome", string(result.Outcome),
			"request_id", requestcontext.RequestID(ctx),
		)
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementCasesCreated()
	}
	s.logger.InfoContext(ctx, "case created",
		"case_id", int64(result.Case.ID),
		"candidate_id", int64(candidate.ID),
		"created_by", int64(actor),
		"request_id", requestcontext.RequestID(ctx),
	)
	if !s.sendCredentials(ctx, candidate) {
		result.SMSWarning = smsWarning
	}
	return result, nil
}

func (s *Service) createInTx(ctx context.Context, actor id.UserID, req models.CreateCaseRequest, hash string) (*models.CreateCaseResult, *identitymodels.User, error) {
	if err := s.users.LockMobile(ctx, req.Mobile); err != nil {
		return nil, nil, err
	}

	open, err := s.cases.FindOpenByNationalID(ctx, req.NationalID)
	if err == nil {
		return &models.CreateCaseResult{Outcome: models.OutcomeOpenCaseExists, OpenCaseID: int64(open.ID)}, nil, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, err
	}

	returning, err := s.users.FindByNationalID(ctx, req.NationalID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		returning = nil
	case err != nil:
		return nil, nil, err
	case returning.Role != id.RoleCandidate:
		return nil, nil, dErrors.New(dErrors.CodeConflict, "national id belongs to a staff account")
	}

	if !req.ForceCreate && (returning == nil || returning.Mobile != req.Mobile) {
		byMobile, err := s.users.FindByMobile(ctx, req.Mobile)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			return nil, nil, err
		case returning == nil || byMobile.ID != returning.ID:
			return &models.CreateCaseResult{
				Outcome: models.OutcomeConfirmMobile,
				ExistingUser: &models.ExistingUser{
					ID:       int64(byMobile.ID),
					FullName: byMobile.FullName,
					Username: byMobile.Username,
					Mobile:   byMobile.Mobile,
				},
			}, nil, nil
		}
	}

	role, err := s.users.EnsureRole(ctx, id.RoleCandidate)
	if err != nil {
		return nil, nil, err
	}

	candidate := returning
	if candidate != nil {
		candidate.FullName = req.FullName
		candidate.Mobile = req.Mobile
		candidate.Email = req.Email
		candidate.PasswordHash = hash
		candidate.RoleID = role.ID
		candidate.IsActive = true
		if candidate.Username == "" {
			candidate.Username = identitymodels.CandidateUsername(candidate.ID)
		}
		if err := s.users.Update(ctx, candidate); err != nil {
			return nil, nil, err
		}
	} else {
		candidate = &identitymodels.User{
			FullName:     req.FullName,
			Mobile:       req.Mobile,
			Email:        req.Email,
			NationalID:   req.NationalID,
			PasswordHash: hash,
			RoleID:       role.ID,
			Role:         role.Name,
			IsActive:     true,
			CreatedAt:    requestcontext.Now(ctx),
		}
		if err := s.users.Create(ctx, candidate); err != nil {
			return nil, nil, err
		}
		candidate.Username = identitymodels.CandidateUsername(candidate.ID)
		if err := s.users.SetUsername(ctx, candidate.ID, candidate.Username); err != nil {
			return nil, nil, err
		}
	}

	c := newCase(candidate.ID, actor, req)
	c.CreatedAt = requestcontext.Now(ctx)
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, nil, err
	}
	if err := s.notifier.InApp(ctx, candidate.ID, notificationmodels.TemplateCaseCreated, map[string]any{
		"case_id": int64(c.ID),
	}); err != nil {
		return nil, nil, err
	}
	return &models.CreateCaseResult{
		Outcome:  models.OutcomeCreated,
		Case:     c,
		Username: candidate.Username,
	}, candidate, nil
}

func newCase(candidate, actor id.UserID, req models.CreateCaseRequest) *models.HiringCase {
	return &models.HiringCase{
		CandidateID:          candidate,
		CreatedBy:            actor,
		FullName:             req.FullName,
		FatherName:           req.FatherName,
		NationalID:           req.NationalID,
		Mobile:               req.Mobile,
		Email:                req.Email,
		Gender:               req.Gender,
		MaritalStatus:        req.MaritalStatus,
		MilitaryStatus:       req.MilitaryStatus,
		HomeAddress:          req.HomeAddress,
		ContractType:         req.ContractType,
		OrgPosition:          req.OrgPosition,
		Degree:               req.Degree,
		BranchManagerName:    req.BranchManagerName,
		BranchManagerMobile:  req.BranchManagerMobile,
		BranchManagerPhone:   req.BranchManagerPhone,
		BranchAddress:        req.BranchAddress,
		RecruiterPhone:       req.RecruiterPhone,
		ApprovedSalaryType:   req.ApprovedSalaryType,
		ApprovedSalaryAmount: req.SalaryAmount(),
		Status:               models.StatusDraft,
		CurrentStep:          string(models.StatusDraft),
	}
}

// sendCredentials texts the login details and records the attempt. The
// recorded payload never includes the password.
func (s *Service) sendCredentials(ctx context.Context, candidate *identitymodels.User) bool {
	text := sms.CandidateAccountText(candidate.Username, s.cfg.DefaultPassword, s.cfg.LoginURL)
	state := notificationmodels.DeliverySent
	if err := s.sender.Send(ctx, candidate.Mobile, text); err != nil {
		state = notificationmodels.DeliveryFailed
		s.logger.WarnContext(ctx, "candidate sms failed",
			"user_id", int64(candidate.ID),
			"mobile", sms.Mask(candidate.Mobile),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementSMS(string(state))
	}
	payload := map[string]any{"username": candidate.Username, "login_url": s.cfg.LoginURL}
	if err := s.notifier.RecordDelivery(ctx, candidate.ID, notificationmodels.ChannelSMS,
		notificationmodels.TemplateCandidateAccount, payload, state); err != nil {
		s.logger.ErrorContext(ctx, "failed to record sms delivery", "user_id", int64(candidate.ID), "error", err)
	}
	return state == notificationmodels.DeliverySent
}
