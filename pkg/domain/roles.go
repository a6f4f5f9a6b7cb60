package domain

// Role names an identity's permission tier.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may operate the recruiter back office.
func (r Role) IsStaff() bool {
	return r == RoleRecruiter || r == RoleAdmin
}

func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}
