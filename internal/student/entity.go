// AngelaMos | 2026
// entity.go

package student

import (
	"slices"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusGraduated Status = "graduated"
)

// Conversion is tracked by IsConverted rather than a status so a graduated
// record keeps its history after it becomes a regular account.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusGraduated},
}

func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusGraduated:
		return true
	}
	return false
}

type Student struct {
	ID                     string     `db:"id"`
	Email                  string     `db:"email"`
	Name                   string     `db:"name"`
	PasswordHash           string     `db:"password_hash"`
	University             string     `db:"university"`
	StudentNumber          string     `db:"student_number"`
	DocumentRef            string     `db:"document_ref"`
	DocumentType           string     `db:"document_type"`
	VerificationStatus     Status     `db:"verification_status"`
	AdminNotes             *string    `db:"admin_notes"`
	ReviewedBy             *string    `db:"reviewed_by"`
	ReviewedAt             *time.Time `db:"reviewed_at"`
	IsConverted            bool       `db:"is_converted"`
	ConvertedUserID        *string    `db:"converted_user_id"`
	ConvertedAt            *time.Time `db:"converted_at"`
	AdminExtensionCount    int        `db:"admin_extension_count"`
	ConversionScheduledFor time.Time  `db:"conversion_scheduled_for"`
	GraduationCompleted    bool       `db:"graduation_completed"`
	GraduatedAt            *time.Time `db:"graduated_at"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

// IsPrivileged reports whether purchases by this identity get the student
// price.
func (s *Student) IsPrivileged() bool {
	return s.VerificationStatus == StatusApproved && !s.IsConverted
}

func (s *Student) Convertible() bool {
	if s.IsConverted {
		return false
	}
	return s.VerificationStatus == StatusApproved || s.VerificationStatus == StatusGraduated
}

func (s *Student) DueForConversion(now time.Time) bool {
	if !s.Convertible() {
		return false
	}
	return s.GraduationCompleted || !s.ConversionScheduledFor.After(now)
}

type StatusCounts struct {
	ByStatus  map[Status]int `json:"by_status"`
	Converted int            `json:"converted"`
}
