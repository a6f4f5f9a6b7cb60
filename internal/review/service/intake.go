package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	casemodels "estekhdam/internal/cases/models"
	"estekhdam/internal/review/models"
	"estekhdam/internal/settings"
	"estekhdam/internal/storage"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

// Upload is a file submitted by a candidate.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// openCaseFor returns the candidate's latest case, which must still be open.
func (s *Service) openCaseFor(ctx context.Context, candidate id.UserID) (*casemodels.HiringCase, error) {
	c, err := s.cases.LatestForCandidate(ctx, candidate)
	if err != nil {
		return nil, notFoundOr(err, "no hiring case found", "failed to load case")
	}
	if !c.IsOpen() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "case is closed")
	}
	return c, nil
}

func (s *Service) saveUpload(ctx context.Context, kind string, c *casemodels.HiringCase, docType string, up Upload) (storage.StoredFile, settings.DocumentLimit, error) {
	if err := s.config.Allows(docType, up.Filename, up.Size); err != nil {
		s.countUpload(kind, "rejected")
		return storage.StoredFile{}, settings.DocumentLimit{}, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	limit, _ := s.config.Limit(docType)
	ext := normalizedExt(up.Filename)
	stored, err := s.files.Save(ctx, "cases/"+c.ID.String(), ext, up.Body, limit.MaxBytes())
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			s.countUpload(kind, "rejected")
			return storage.StoredFile{}, settings.DocumentLimit{}, dErrors.New(dErrors.CodeValidation, "file exceeds the size limit")
		}
		s.countUpload(kind, "failed")
		return storage.StoredFile{}, settings.DocumentLimit{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store upload")
	}
	return stored, limit, nil
}

func normalizedExt(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func (s *Service) countUpload(kind, result string) {
	if s.metrics != nil {
		s.metrics.IncrementUpload(kind, result)
	}
}

// discard removes a stored file whose row could not be written.
func (s *Service) discard(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned upload", "path", path, "error", err)
	}
}

// SubmitDocument stores an identity document for the candidate's open case.
func (s *Service) SubmitDocument(ctx context.Context, candidate id.UserID, docType string, up Upload) (*models.Document, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" || docType == settings.VideoKYCType {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown document type")
	}
	c, err := s.openCaseFor(ctx, candidate)
	if err != nil {
		return nil, err
	}
	stored, limit, err := s.saveUpload(ctx, "document", c, docType, up)
	if err != nil {
		return nil, err
	}
	ext := normalizedExt(up.Filename)
	doc := &models.Document{
		CaseID:       c.ID,
		Type:         docType,
		FilePath:     stored.Path,
		Mime:         mime.TypeByExtension("." + ext),
		SizeBytes:    stored.Size,
		Checksum:     stored.Checksum,
		VerifyStatus: models.VerdictPending,
		MaxSizeHint:  limit.MaxMB,
		UploadedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.discard(ctx, stored.Path)
		s.countUpload("document", "failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
	}
	s.countUpload("document", "accepted")
	s.logger.InfoContext(ctx, "document uploaded",
		"case_id", int64(c.ID),
		"document_id", int64(doc.ID),
		"type", docType,
		"size", stored.Size,
		"request_id", requestcontext.RequestID(ctx),
	)
	return doc, nil
}

// SubmitVideo stores a video KYC recording for the candidate's open case.
func (s *Service) SubmitVideo(ctx context.Context, candidate id.UserID, up Upload, durationSec int) (*models.VideoKYC, error) {
	if durationSec < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration must not be negative")
	}
	c, err := s.openCaseFor(ctx, candidate)
	if err != nil {
		return nil, err
	}
	stored, _, err := s.saveUpload(ctx, "video", c, settings.VideoKYCType, up)
	if err != nil {
		return nil, err
	}
	v := &models.VideoKYC{
		CaseID:       c.ID,
		FilePath:     stored.Path,
		DurationSec:  durationSec,
		SubmittedAt:  requestcontext.Now(ctx),
		ReviewStatus: models.VerdictPending,
	}
	if err := s.store.CreateVideo(ctx, v); err != nil {
		s.discard(ctx, stored.Path)
		s.countUpload("video", "failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save video")
	}
	s.countUpload("video", "accepted")
	s.logger.InfoContext(ctx, "video uploaded",
		"case_id", int64(c.ID),
		"video_id", int64(v.ID),
		"request_id", requestcontext.RequestID(ctx),
	)
	return v, nil
}

// MarkDelivered records that the candidate has sent the paper dossier.
// Resubmitting after an incomplete or rejected verdict reopens the latest
// checklist; an approved delivery cannot be resubmitted.
func (s *Service) MarkDelivered(ctx context.Context, candidate id.UserID, trackingCode string) (*models.PhysicalChecklist, error) {
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tracking code is required")
	}
	if len(trackingCode) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "tracking code is too long")
	}
	c, err := s.openCaseFor(ctx, candidate)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListPhysicalByCase(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load checklists")
	}
	now := requestcontext.Now(ctx)
	if n := len(existing); n > 0 {
		latest := existing[n-1]
		if latest.Verdict == models.VerdictApproved {
			return nil, dErrors.New(dErrors.CodeInvalidState, "delivery already approved")
		}
		latest.TrackingCode = trackingCode
		latest.DeliveredAt = &now
		latest.Verdict = ""
		latest.VerdictAt = nil
		latest.VerdictReason = ""
		if err := s.store.UpdatePhysical(ctx, &latest); err != nil {
			return nil, notFoundOr(err, "checklist not found", "failed to update checklist")
		}
		return &latest, nil
	}
	p := &models.PhysicalChecklist{CaseID: c.ID, TrackingCode: trackingCode, DeliveredAt: &now}
	if err := s.store.CreatePhysical(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create checklist")
	}
	return p, nil
}

// MyItems lists what the candidate has submitted for their latest case.
func (s *Service) MyItems(ctx context.Context, candidate id.UserID) (*models.CandidateItems, error) {
	c, err := s.cases.LatestForCandidate(ctx, candidate)
	if err != nil {
		return nil, notFoundOr(err, "no hiring case found", "failed to load case")
	}
	out := &models.CandidateItems{Case: *c}
	if out.Documents, err = s.store.ListDocumentsByCase(ctx, c.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	if out.Videos, err = s.store.ListVideosByCase(ctx, c.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list videos")
	}
	if out.Physical, err = s.store.ListPhysicalByCase(ctx, c.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list checklists")
	}
	return out, nil
}
