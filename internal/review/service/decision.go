package service

import (
	"context"
	"strings"

	notificationmodels "estekhdam/internal/notification/models"
	"estekhdam/internal/review/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

// checkDecision validates a reviewer decision and clears stale rejection
// metadata on approval.
func checkDecision(d models.Decision) (models.Decision, error) {
	if !d.Verdict.IsDecision() {
		return d, dErrors.New(dErrors.CodeValidation, "decision must be approved or rejected")
	}
	d.Reason = strings.TrimSpace(d.Reason)
	if d.Verdict == models.VerdictApproved {
		return models.Decision{Verdict: models.VerdictApproved}, nil
	}
	if !d.Code.IsValid() {
		return d, dErrors.New(dErrors.CodeValidation, "a reject code is required")
	}
	return d, nil
}

func (s *Service) DecideDocument(ctx context.Context, actor id.UserID, docID id.DocumentID, decision models.Decision) (*models.Document, error) {
	decision, err := checkDecision(decision)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.FindDocument(ctx, docID)
	if err != nil {
		return nil, notFoundOr(err, "document not found", "failed to load document")
	}
	now := requestcontext.Now(ctx)
	doc.VerifyStatus = decision.Verdict
	doc.RejectCode = decision.Code
	doc.RejectReason = decision.Reason
	doc.ReviewedBy = actor
	doc.ReviewedAt = &now
	if err := s.store.UpdateDocumentVerdict(ctx, doc); err != nil {
		return nil, notFoundOr(err, "document not found", "failed to save decision")
	}
	s.recorded(ctx, "documents", doc.CaseID, decision.Verdict, notificationmodels.TemplateDocumentReviewed, map[string]any{
		"document_id": int64(doc.ID),
		"type":        doc.Type,
		"verdict":     string(doc.VerifyStatus),
		"reject_code": string(doc.RejectCode),
	})
	return doc, nil
}

func (s *Service) DecideVideo(ctx context.Context, actor id.UserID, videoID id.VideoID, decision models.Decision) (*models.VideoKYC, error) {
	decision, err := checkDecision(decision)
	if err != nil {
		return nil, err
	}
	v, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return nil, notFoundOr(err, "video not found", "failed to load video")
	}
	now := requestcontext.Now(ctx)
	v.ReviewStatus = decision.Verdict
	v.RejectCode = decision.Code
	v.RejectReason = decision.Reason
	v.ReviewedBy = actor
	v.ReviewedAt = &now
	if err := s.store.UpdateVideoVerdict(ctx, v); err != nil {
		return nil, notFoundOr(err, "video not found", "failed to save decision")
	}
	s.recorded(ctx, "videos", v.CaseID, decision.Verdict, notificationmodels.TemplateVideoReviewed, map[string]any{
		"video_id":    int64(v.ID),
		"verdict":     string(v.ReviewStatus),
		"reject_code": string(v.RejectCode),
	})
	return v, nil
}

// DecidePhysical records a verdict on a delivery. Anything other than
// approved or rejected is stored as incomplete. The reason is always kept.
func (s *Service) DecidePhysical(ctx context.Context, checklistID id.ChecklistID, verdict models.Verdict, reason string) (*models.PhysicalChecklist, error) {
	if !verdict.IsDecision() {
		verdict = models.VerdictIncomplete
	}
	p, err := s.store.FindPhysical(ctx, checklistID)
	if err != nil {
		return nil, notFoundOr(err, "checklist not found", "failed to load checklist")
	}
	now := requestcontext.Now(ctx)
	p.Verdict = verdict
	p.VerdictAt = &now
	p.VerdictReason = strings.TrimSpace(reason)
	if err := s.store.UpdatePhysical(ctx, p); err != nil {
		return nil, notFoundOr(err, "checklist not found", "failed to save decision")
	}
	s.recorded(ctx, "physical", p.CaseID, verdict, notificationmodels.TemplatePhysicalReviewed, map[string]any{
		"checklist_id": int64(p.ID),
		"verdict":      string(verdict),
	})
	return p, nil
}

// recorded counts, logs and notifies the candidate about a stored verdict.
// Notification failures do not undo the verdict.
func (s *Service) recorded(ctx context.Context, queue string, caseID id.CaseID, verdict models.Verdict, template string, payload map[string]any) {
	if s.metrics != nil {
		s.metrics.IncrementDecision(queue, string(verdict))
	}
	s.logger.InfoContext(ctx, "review decision recorded",
		"queue", queue,
		"case_id", int64(caseID),
		"verdict", string(verdict),
		"actor_id", int64(requestcontext.UserID(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		s.logger.WarnContext(ctx, "review decision for unknown case", "case_id", int64(caseID), "error", err)
		return
	}
	payload["case_id"] = int64(caseID)
	if err := s.notifier.InApp(ctx, c.CandidateID, template, payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to notify candidate", "case_id", int64(caseID), "error", err)
	}
}
