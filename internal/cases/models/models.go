package models

import (
	"time"

	id "estekhdam/pkg/domain"
)

// HiringCase is one candidate's employment attempt. Identity fields are a
// snapshot copied from the candidate account so search needs no join.
type HiringCase struct {
	ID          id.CaseID
	CandidateID id.UserID
	CreatedBy   id.UserID

	FullName       string
	FatherName     string
	NationalID     string
	Mobile         string
	Email          string
	Gender         string
	MaritalStatus  string
	MilitaryStatus string
	HomeAddress    string

	ContractType         string
	OrgPosition          string
	Degree               string
	BranchManagerName    string
	BranchManagerMobile  string
	BranchManagerPhone   string
	BranchAddress        string
	RecruiterPhone       string
	ApprovedSalaryType   string
	ApprovedSalaryAmount *int64

	Status      Status
	CurrentStep string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c HiringCase) IsOpen() bool {
	return !c.Status.IsClosed()
}

// Filter narrows List. Query is matched against name, national ID and mobile.
type Filter struct {
	Query string
	IDs   []id.CaseID
}

// DashboardRow is a case plus which review queues hold records for it.
type DashboardRow struct {
	Case        HiringCase
	HasDocs     bool
	HasVideo    bool
	HasPhysical bool
}
