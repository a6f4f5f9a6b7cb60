package models

import (
	"strconv"
	"strings"

	"estekhdam/pkg/textnorm"
)

// CreateCaseRequest is the recruiter's new-case form.
type CreateCaseRequest struct {
	FullName       string `form:"full_name" validate:"required,max=120"`
	FatherName     string `form:"father_name" validate:"max=120"`
	NationalID     string `form:"national_id" validate:"required,number,min=10,max=20"`
	Mobile         string `form:"mobile" validate:"required,min=8,max=20"`
	Email          string `form:"email" validate:"omitempty,email,max=120"`
	HomeAddress    string `form:"home_address" validate:"max=500"`
	Gender         string `form:"gender" validate:"required,oneof=male female"`
	MaritalStatus  string `form:"marital_status" validate:"required,oneof=single married"`
	MilitaryStatus string `form:"military_status" validate:"required_if=Gender male,omitempty,oneof=done exempt inprogress"`

	ContractType        string `form:"contract_type" validate:"required,oneof=full_time hourly"`
	OrgPosition         string `form:"org_position" validate:"required,max=120"`
	Degree              string `form:"degree" validate:"required,oneof=diploma associate bachelor master phd"`
	BranchManagerName   string `form:"branch_manager_name" validate:"max=120"`
	BranchManagerMobile string `form:"branch_manager_mobile" validate:"max=20"`
	BranchManagerPhone  string `form:"branch_manager_phone" validate:"max=20"`
	BranchAddress       string `form:"branch_address" validate:"max=500"`
	RecruiterPhone      string `form:"recruiter_phone" validate:"max=20"`

	ApprovedSalaryType   string `form:"approved_salary_type" validate:"required,oneof=fixed hourly"`
	ApprovedSalaryAmount string `form:"approved_salary_amount" validate:"omitempty,number"`

	ForceCreate bool `form:"-"`
}

// Normalize trims every field, folds names to the form search queries use
// and folds localized digits in numeric fields.
func (r *CreateCaseRequest) Normalize() {
	for _, f := range []*string{
		&r.FullName, &r.FatherName, &r.HomeAddress, &r.OrgPosition, &r.BranchManagerName,
		&r.BranchAddress,
	} {
		*f = textnorm.Query(*f)
	}
	for _, f := range []*string{
		&r.Email, &r.Gender, &r.MaritalStatus, &r.MilitaryStatus, &r.ContractType,
		&r.Degree, &r.ApprovedSalaryType,
	} {
		*f = strings.TrimSpace(textnorm.Digits(*f))
	}
	for _, f := range []*string{
		&r.NationalID, &r.Mobile, &r.BranchManagerMobile, &r.BranchManagerPhone,
		&r.RecruiterPhone, &r.ApprovedSalaryAmount,
	} {
		*f = textnorm.Numeric(*f)
	}
	r.Email = strings.ToLower(r.Email)
	r.ApprovedSalaryAmount = strings.ReplaceAll(r.ApprovedSalaryAmount, ",", "")
}

// SalaryAmount parses ApprovedSalaryAmount; empty means not set.
func (r CreateCaseRequest) SalaryAmount() *int64 {
	if r.ApprovedSalaryAmount == "" {
		return nil
	}
	n, err := strconv.ParseInt(r.ApprovedSalaryAmount, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// Outcome tells the create form which state to render.
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeOpenCaseExists Outcome = "open_case_exists"
	OutcomeConfirmMobile  Outcome = "confirm_mobile"
)

// ExistingUser is the minimal identity shown in the confirm-mobile modal.
type ExistingUser struct {
	ID       int64
	FullName string
	Username string
	Mobile   string
}

// CreateCaseResult reports what CreateCase did. SMSWarning is set when the
// case exists but the credential SMS could not be delivered.
type CreateCaseResult struct {
	Outcome      Outcome
	Case         *HiringCase
	Username     string
	OpenCaseID   int64
	ExistingUser *ExistingUser
	SMSWarning   string
}
