package dto

import (
	"time"

	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/service"
)

// StudentRequest is the payload for create and full update.
type StudentRequest struct {
	Name   string `json:"name"`
	RollNo int    `json:"rollNo"`
	Branch string `json:"branch"`
	Course string `json:"course"`
}

// ToInput converts the payload for the student service.
func (r StudentRequest) ToInput() service.StudentInput {
	return service.StudentInput{Name: r.Name, RollNo: r.RollNo, Branch: r.Branch, Course: r.Course}
}

// StudentPatchRequest is the payload for partial update; absent fields are kept.
type StudentPatchRequest struct {
	Name   *string `json:"name"`
	RollNo *int    `json:"rollNo"`
	Branch *string `json:"branch"`
	Course *string `json:"course"`
}

// ToPatch converts the payload for the student service.
func (r StudentPatchRequest) ToPatch() domain.StudentPatch {
	return domain.StudentPatch{Name: r.Name, RollNo: r.RollNo, Branch: r.Branch, Course: r.Course}
}

// StudentResponse is the public view of a student record.
type StudentResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RollNo    int       `json:"rollNo"`
	Branch    string    `json:"branch"`
	Course    string    `json:"course"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewStudentResponse maps a domain record.
func NewStudentResponse(s *domain.Student) StudentResponse {
	return StudentResponse{
		ID:        s.ID,
		Name:      s.Name,
		RollNo:    s.RollNo,
		Branch:    s.Branch,
		Course:    s.Course,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// NewStudentResponses maps a list, never returning nil.
func NewStudentResponses(students []domain.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, NewStudentResponse(&students[i]))
	}
	return out
}
