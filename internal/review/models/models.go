package models

import (
	"slices"
	"time"

	casemodels "estekhdam/internal/cases/models"
	id "estekhdam/pkg/domain"
)

// Verdict is the outcome recorded against a review item. The empty verdict
// means no decision has been stored yet.
type Verdict string

const (
	VerdictPending    Verdict = "pending"
	VerdictApproved   Verdict = "approved"
	VerdictRejected   Verdict = "rejected"
	VerdictIncomplete Verdict = "incomplete"
)

// IsDecision reports whether v is one of the two verdicts a reviewer submits.
func (v Verdict) IsDecision() bool {
	return v == VerdictApproved || v == VerdictRejected
}

type RejectCode string

const (
	RejectIncomplete RejectCode = "incomplete"
	RejectUnreadable RejectCode = "unreadable"
	RejectInvalid    RejectCode = "invalid"
)

var RejectCodes = []RejectCode{RejectIncomplete, RejectUnreadable, RejectInvalid}

func (c RejectCode) IsValid() bool {
	return slices.Contains(RejectCodes, c)
}

type Document struct {
	ID           id.DocumentID
	CaseID       id.CaseID
	Type         string
	FilePath     string
	Mime         string
	SizeBytes    int64
	Checksum     string
	VerifyStatus Verdict
	RejectCode   RejectCode
	RejectReason string
	MaxSizeHint  int
	UploadedAt   time.Time
	ReviewedBy   id.UserID
	ReviewedAt   *time.Time
}

func (d Document) IsPending() bool {
	return d.VerifyStatus == "" || d.VerifyStatus == VerdictPending
}

type VideoKYC struct {
	ID           id.VideoID
	CaseID       id.CaseID
	FilePath     string
	DurationSec  int
	SubmittedAt  time.Time
	ReviewStatus Verdict
	RejectCode   RejectCode
	RejectReason string
	ReviewedBy   id.UserID
	ReviewedAt   *time.Time
}

func (v VideoKYC) IsPending() bool {
	return v.ReviewStatus == "" || v.ReviewStatus == VerdictPending
}

// PhysicalChecklist tracks delivery of the paper dossier.
type PhysicalChecklist struct {
	ID            id.ChecklistID
	CaseID        id.CaseID
	TrackingCode  string
	DeliveredAt   *time.Time
	Verdict       Verdict
	VerdictAt     *time.Time
	VerdictReason string
}

func (p PhysicalChecklist) IsPending() bool {
	return p.Verdict == "" || p.Verdict == VerdictIncomplete
}

// Rollup is a total and pending count for one review category.
type Rollup struct {
	Total   int
	Pending int
}

type Stats struct {
	Documents Rollup
	Videos    Rollup
	Physical  Rollup
}

// Presence counts a case's records per review category.
type Presence struct {
	Documents int
	Videos    int
	Physical  int
}

// DocumentQueueRow is a case with at least one uploaded document.
type DocumentQueueRow struct {
	Case     casemodels.HiringCase
	DocCount int
}

type VideoRow struct {
	Video VideoKYC
	Case  casemodels.HiringCase
}

type PhysicalRow struct {
	Item PhysicalChecklist
	Case casemodels.HiringCase
}

// Decision is a reviewer's verdict on a document or video.
type Decision struct {
	Verdict Verdict
	Code    RejectCode
	Reason  string
}

// CandidateItems is everything a candidate has submitted for their case.
type CandidateItems struct {
	Case      casemodels.HiringCase
	Documents []Document
	Videos    []VideoKYC
	Physical  []PhysicalChecklist
}
