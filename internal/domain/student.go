package domain

import "time"

// Student is a student record, the resource guarded by role and roll number.
type Student struct {
	ID        int64
	Name      string
	RollNo    int
	Branch    string
	Course    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudentPatch carries optional fields for a partial update.
type StudentPatch struct {
	Name   *string
	RollNo *int
	Branch *string
	Course *string
}
