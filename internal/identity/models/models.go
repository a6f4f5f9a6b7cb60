package models

import (
	"time"

	id "estekhdam/pkg/domain"
)

type Role struct {
	ID   int64
	Name id.Role
}

// User is an account able to log in: a candidate or a staff member.
// Username stays empty until the database assigns an ID for candidates.
type User struct {
	ID           id.UserID
	FullName     string
	Mobile       string
	Email        string
	Username     string
	NationalID   string
	PasswordHash string
	RoleID       int64
	Role         id.Role
	IsActive     bool
	CreatedAt    time.Time
}

// CandidateUsername derives the login name of a candidate from its ID.
func CandidateUsername(userID id.UserID) string {
	return "cand" + userID.String()
}
