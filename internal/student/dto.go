// AngelaMos | 2026
// dto.go

package student

import (
	"time"
)

type RegisterRequest struct {
	Email         string `validate:"required,email,max=255"`
	Name          string `validate:"required,min=1,max=100"`
	Password      string `validate:"required,min=8,max=128"`
	University    string `validate:"required,max=200"`
	StudentNumber string `validate:"required,max=64"`
}

type VerifyRequest struct {
	Status     string `json:"status"     validate:"required,oneof=approved rejected"`
	AdminNotes string `json:"adminNotes" validate:"max=2000"`
}

type ListParams struct {
	Status    Status
	Converted *bool
	Page      int
	PageSize  int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type RegisterResponse struct {
	StudentID string `json:"studentId"`
	Status    Status `json:"status"`
}

type StudentResponse struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	University             string     `json:"university"`
	StudentNumber          string     `json:"student_number"`
	DocumentRef            string     `json:"document_ref"`
	DocumentType           string     `json:"document_type"`
	VerificationStatus     Status     `json:"verification_status"`
	AdminNotes             *string    `json:"admin_notes,omitempty"`
	ReviewedBy             *string    `json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time `json:"reviewed_at,omitempty"`
	IsConverted            bool       `json:"is_converted"`
	ConvertedUserID        *string    `json:"converted_user_id,omitempty"`
	ConvertedAt            *time.Time `json:"converted_at,omitempty"`
	AdminExtensionCount    int        `json:"admin_extension_count"`
	ConversionScheduledFor time.Time  `json:"conversion_scheduled_for"`
	GraduationCompleted    bool       `json:"graduation_completed"`
	GraduatedAt            *time.Time `json:"graduated_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

func ToStudentResponse(s *Student) StudentResponse {
	return StudentResponse{
		ID:                     s.ID,
		Email:                  s.Email,
		Name:                   s.Name,
		University:             s.University,
		StudentNumber:          s.StudentNumber,
		DocumentRef:            s.DocumentRef,
		DocumentType:           s.DocumentType,
		VerificationStatus:     s.VerificationStatus,
		AdminNotes:             s.AdminNotes,
		ReviewedBy:             s.ReviewedBy,
		ReviewedAt:             s.ReviewedAt,
		IsConverted:            s.IsConverted,
		ConvertedUserID:        s.ConvertedUserID,
		ConvertedAt:            s.ConvertedAt,
		AdminExtensionCount:    s.AdminExtensionCount,
		ConversionScheduledFor: s.ConversionScheduledFor,
		GraduationCompleted:    s.GraduationCompleted,
		GraduatedAt:            s.GraduatedAt,
		CreatedAt:              s.CreatedAt,
	}
}

type ActionResponse struct {
	Message string          `json:"message"`
	Student StudentResponse `json:"student"`
}

type SweepResponse struct {
	ConvertedCount int `json:"convertedCount"`
}
