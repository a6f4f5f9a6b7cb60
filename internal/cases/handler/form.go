package handler

import "estekhdam/internal/cases/models"

type option struct {
	Value string
	Label string
}

type formField struct {
	Name      string
	Label     string
	Value     string
	Options   []option
	Multiline bool
}

var (
	genderOptions   = []option{{"male", "Male"}, {"female", "Female"}}
	maritalOptions  = []option{{"single", "Single"}, {"married", "Married"}}
	militaryOptions = []option{{"", "Select"}, {"done", "Completed / permanent exemption"}, {"exempt", "Exempt"}, {"inprogress", "In progress / unknown"}}
	contractOptions = []option{{"full_time", "Full time"}, {"hourly", "Hourly"}}
	degreeOptions   = []option{{"diploma", "Diploma"}, {"associate", "Associate"}, {"bachelor", "Bachelor"}, {"master", "Master"}, {"phd", "PhD"}}
	salaryOptions   = []option{{"fixed", "Fixed monthly"}, {"hourly", "Hourly"}}
)

// formFields lays out the create form in display order.
func formFields(req models.CreateCaseRequest) []formField {
	return []formField{
		{Name: "full_name", Label: "Full name", Value: req.FullName},
		{Name: "father_name", Label: "Father's name", Value: req.FatherName},
		{Name: "national_id", Label: "National ID", Value: req.NationalID},
		{Name: "mobile", Label: "Mobile", Value: req.Mobile},
		{Name: "email", Label: "Email", Value: req.Email},
		{Name: "home_address", Label: "Home address", Value: req.HomeAddress, Multiline: true},
		{Name: "gender", Label: "Gender", Value: req.Gender, Options: genderOptions},
		{Name: "marital_status", Label: "Marital status", Value: req.MaritalStatus, Options: maritalOptions},
		{Name: "military_status", Label: "Military service", Value: req.MilitaryStatus, Options: militaryOptions},
		{Name: "contract_type", Label: "Contract type", Value: req.ContractType, Options: contractOptions},
		{Name: "org_position", Label: "Position", Value: req.OrgPosition},
		{Name: "degree", Label: "Degree", Value: req.Degree, Options: degreeOptions},
		{Name: "branch_manager_name", Label: "Branch manager", Value: req.BranchManagerName},
		{Name: "branch_manager_mobile", Label: "Branch manager mobile", Value: req.BranchManagerMobile},
		{Name: "branch_manager_phone", Label: "Branch manager phone", Value: req.BranchManagerPhone},
		{Name: "branch_address", Label: "Branch address", Value: req.BranchAddress, Multiline: true},
		{Name: "recruiter_phone", Label: "Recruiter phone", Value: req.RecruiterPhone},
		{Name: "approved_salary_type", Label: "Salary type", Value: req.ApprovedSalaryType, Options: salaryOptions},
		{Name: "approved_salary_amount", Label: "Approved salary", Value: req.ApprovedSalaryAmount},
	}
}
