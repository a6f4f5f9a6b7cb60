package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"estekhdam/internal/cases/models"
	notificationmodels "estekhdam/internal/notification/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

// Close moves a case to closed from any open state. Closing a closed case
// succeeds without writing.
func (s *Service) Close(ctx context.Context, caseID id.CaseID) (err error) {
	ctx, span := s.startSpan(ctx, "cases.Close", attribute.Int64("case_id", int64(caseID)))
	defer func() { endSpan(span, err) }()

	var closed *models.HiringCase
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		closed = nil
		c, err := s.cases.FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c.Status.IsClosed() {
			return nil
		}
		if err := s.cases.UpdateStatus(ctx, caseID, c.Version, models.StatusClosed, string(models.StatusClosed), requestcontext.Now(ctx)); err != nil {
			return err
		}
		closed = c
		return s.notifier.InApp(ctx, c.CandidateID, notificationmodels.TemplateCaseClosed, map[string]any{
			"case_id": int64(c.ID),
		})
	})
	if err != nil {
		return translateCaseErr(err, "failed to close case")
	}
	if closed == nil {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncrementCasesClosed()
	}
	s.logger.InfoContext(ctx, "case closed",
		"case_id", int64(caseID),
		"from_status", string(closed.Status),
		"actor_id", int64(requestcontext.UserID(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Advance moves a case along the transition table. A positive version must
// match the stored one; zero means the caller accepts the current version.
func (s *Service) Advance(ctx context.Context, caseID id.CaseID, next models.Status, version int) (_ *models.HiringCase, err error) {
	ctx, span := s.startSpan(ctx, "cases.Advance",
		attribute.Int64("case_id", int64(caseID)),
		attribute.String("to", string(next)),
	)
	defer func() { endSpan(span, err) }()

	if !next.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	if next.IsClosed() {
		if err := s.Close(ctx, caseID); err != nil {
			return nil, err
		}
		return s.GetCase(ctx, caseID)
	}

	var from models.Status
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.cases.FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if version > 0 && version != c.Version {
			return dErrors.New(dErrors.CodeConflict, "case was modified concurrently")
		}
		if !c.Status.CanTransitionTo(next) {
			return dErrors.New(dErrors.CodeInvalidState,
				"cannot move case from "+string(c.Status)+" to "+string(next))
		}
		from = c.Status
		return s.cases.UpdateStatus(ctx, caseID, c.Version, next, string(next), requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, translateCaseErr(err, "failed to update case status")
	}
	s.logger.InfoContext(ctx, "case status changed",
		"case_id", int64(caseID),
		"from_status", string(from),
		"to_status", string(next),
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.GetCase(ctx, caseID)
}

// Delete removes a case and its review records in one transaction, then
// removes the uploaded files. File removal failures are logged only.
func (s *Service) Delete(ctx context.Context, caseID id.CaseID) (err error) {
	ctx, span := s.startSpan(ctx, "cases.Delete", attribute.Int64("case_id", int64(caseID)))
	defer func() { endSpan(span, err) }()

	var paths []string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.cases.FindByID(ctx, caseID); err != nil {
			return err
		}
		var err error
		if paths, err = s.reviews.DeleteByCase(ctx, caseID); err != nil {
			return err
		}
		return s.cases.Delete(ctx, caseID)
	})
	if err != nil {
		return translateCaseErr(err, "failed to delete case")
	}

	if s.files != nil {
		for _, p := range paths {
			if err := s.files.Delete(ctx, p); err != nil {
				s.logger.WarnContext(ctx, "failed to remove upload", "path", p, "case_id", int64(caseID), "error", err)
			}
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementCasesDeleted()
	}
	s.logger.InfoContext(ctx, "case deleted",
		"case_id", int64(caseID),
		"files", len(paths),
		"actor_id", int64(requestcontext.UserID(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
