// Package domain holds typed identifiers shared across bounded contexts.
//
// Entity identifiers are database-assigned positive integers. Each entity gets
// its own named type so a CaseID cannot be passed where a UserID is expected.
// Session identifiers are UUIDs because they are handed to browsers.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "estekhdam/pkg/domain-errors"
)

type (
	UserID         int64
	CaseID         int64
	DocumentID     int64
	VideoID        int64
	ChecklistID    int64
	NotificationID int64
	SessionID      uuid.UUID
)

func (id UserID) String() string         { return strconv.FormatInt(int64(id), 10) }
func (id CaseID) String() string         { return strconv.FormatInt(int64(id), 10) }
func (id DocumentID) String() string     { return strconv.FormatInt(int64(id), 10) }
func (id VideoID) String() string        { return strconv.FormatInt(int64(id), 10) }
func (id ChecklistID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id NotificationID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id SessionID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return id <= 0 }
func (id CaseID) IsNil() bool    { return id <= 0 }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewSessionID returns a random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func parseInt(kind, s string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if strings.TrimSpace(s) != s || s[0] == '+' {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return n, nil
}

func ParseUserID(s string) (UserID, error) {
	n, err := parseInt("user ID", s)
	return UserID(n), err
}

func ParseCaseID(s string) (CaseID, error) {
	n, err := parseInt("case ID", s)
	return CaseID(n), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	n, err := parseInt("document ID", s)
	return DocumentID(n), err
}

func ParseVideoID(s string) (VideoID, error) {
	n, err := parseInt("video ID", s)
	return VideoID(n), err
}

func ParseChecklistID(s string) (ChecklistID, error) {
	n, err := parseInt("checklist ID", s)
	return ChecklistID(n), err
}

// ParseSessionID parses a session identifier, rejecting the nil UUID.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid session ID")
	}
	if u == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session ID")
	}
	return SessionID(u), nil
}

func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
