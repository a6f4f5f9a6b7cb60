package models

import "slices"

// Status is a hiring case lifecycle state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusCandidateComplete Status = "candidate_complete"
	StatusDocsReview        Status = "docs_review"
	StatusHRIssueDecree     Status = "hr_issue_decree"
	StatusVideoRequested    Status = "video_requested"
	StatusVideoReview       Status = "video_review"
	StatusPhysicalDelivery  Status = "physical_delivery"
	StatusPhysicalReview    Status = "physical_review"
	StatusITPRFinance       Status = "it_pr_finance"
	StatusClosed            Status = "closed"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusCandidateComplete,
	StatusDocsReview,
	StatusHRIssueDecree,
	StatusVideoRequested,
	StatusVideoReview,
	StatusPhysicalDelivery,
	StatusPhysicalReview,
	StatusITPRFinance,
	StatusClosed,
}

// transitions lists forward (and review send-back) moves. Closing is allowed
// from every non-terminal state and is not repeated here.
var transitions = map[Status][]Status{
	StatusDraft:             {StatusCandidateComplete},
	StatusCandidateComplete: {StatusDocsReview},
	StatusDocsReview:        {StatusHRIssueDecree, StatusCandidateComplete},
	StatusHRIssueDecree:     {StatusVideoRequested},
	StatusVideoRequested:    {StatusVideoReview},
	StatusVideoReview:       {StatusPhysicalDelivery, StatusVideoRequested},
	StatusPhysicalDelivery:  {StatusPhysicalReview},
	StatusPhysicalReview:    {StatusITPRFinance, StatusPhysicalDelivery},
	StatusITPRFinance:       {StatusClosed},
}

func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

func (s Status) IsClosed() bool {
	return s == StatusClosed
}

// CanTransitionTo reports whether a status write from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() || s.IsClosed() {
		return false
	}
	if next == StatusClosed {
		return true
	}
	return slices.Contains(transitions[s], next)
}

// NextStatuses lists the states reachable from s, closed last.
func (s Status) NextStatuses() []Status {
	if !s.IsValid() || s.IsClosed() {
		return nil
	}
	out := slices.Clone(transitions[s])
	if !slices.Contains(out, StatusClosed) {
		out = append(out, StatusClosed)
	}
	return out
}
