package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/repository"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// StudentInput describes a full student record write.
type StudentInput struct {
	Name   string
	RollNo int
	Branch string
	Course string
}

// StudentService exposes student records to authenticated callers.
// Every operation re-checks the caller's permission.
type StudentService struct {
	students repository.StudentRepository
	logger   *zap.Logger
}

// NewStudentService builds the service.
func NewStudentService(students repository.StudentRepository, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, logger: logger}
}

// List returns every record for ADMIN and TEACHER and only the caller's own
// record for a STUDENT.
func (s *StudentService) List(ctx context.Context, caller domain.Identity) ([]domain.Student, error) {
	switch auth.ScopeFor(caller, auth.OpListStudents) {
	case auth.ScopeAll:
		students, err := s.students.List(ctx)
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("list students: %w", err))
		}
		return students, nil
	case auth.ScopeOwn:
		if !caller.HasRollNo() {
			return nil, s.denied(caller, auth.OpListStudents, "You don't have permission to view all students")
		}
		student, err := s.students.GetByRollNo(ctx, caller.RollNo)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return []domain.Student{}, nil
		case err != nil:
			return nil, apperrors.NewInternalError(fmt.Errorf("get own student: %w", err))
		}
		return []domain.Student{*student}, nil
	default:
		return nil, s.denied(caller, auth.OpListStudents, "You don't have permission to view all students")
	}
}

// GetByID returns one record. A STUDENT gets ACCESS_DENIED for both foreign
// and missing records.
func (s *StudentService) GetByID(ctx context.Context, caller domain.Identity, id int64) (*domain.Student, error) {
	scope := auth.ScopeFor(caller, auth.OpReadStudent)
	if scope == auth.ScopeNone {
		return nil, s.denied(caller, auth.OpReadStudent, "You don't have permission to view this student's details")
	}

	student, err := s.students.GetByID(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if scope == auth.ScopeOwn {
			return nil, s.denied(caller, auth.OpReadStudent, "Students can only access their own record")
		}
		return nil, apperrors.NewNotFound("Student", map[string]any{"id": id})
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("get student: %w", err))
	}

	if err := auth.Authorize(caller, auth.OpReadStudent, &student.RollNo); err != nil {
		s.logDenied(caller, auth.OpReadStudent)
		return nil, err
	}
	return student, nil
}

// GetByRollNo returns the record for rollNo. The decision needs no lookup, so
// it is made first.
func (s *StudentService) GetByRollNo(ctx context.Context, caller domain.Identity, rollNo int) (*domain.Student, error) {
	if err := auth.Authorize(caller, auth.OpReadStudent, &rollNo); err != nil {
		s.logDenied(caller, auth.OpReadStudent)
		return nil, err
	}

	student, err := s.students.GetByRollNo(ctx, rollNo)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Student", map[string]any{"rollNo": rollNo})
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("get student by roll number: %w", err))
	}
	return student, nil
}

// Create adds a record.
func (s *StudentService) Create(ctx context.Context, caller domain.Identity, in StudentInput) (*domain.Student, error) {
	if err := s.authorize(caller, auth.OpCreateStudent); err != nil {
		return nil, err
	}

	student := in.toStudent()
	if err := validateStudent(student); err != nil {
		return nil, err
	}
	if err := s.ensureRollNoFree(ctx, student.RollNo); err != nil {
		return nil, err
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, writeError("create student", err)
	}

	s.logger.Info("student created",
		zap.String("by", caller.Username), zap.Int64("id", student.ID), zap.Int("roll_no", student.RollNo))
	return student, nil
}

// Update replaces every field of a record.
func (s *StudentService) Update(ctx context.Context, caller domain.Identity, id int64, in StudentInput) (*domain.Student, error) {
	if err := s.authorize(caller, auth.OpUpdateStudent); err != nil {
		return nil, err
	}

	next := in.toStudent()
	if err := validateStudent(next); err != nil {
		return nil, err
	}
	return s.save(ctx, caller, id, func(current *domain.Student) {
		current.Name = next.Name
		current.RollNo = next.RollNo
		current.Branch = next.Branch
		current.Course = next.Course
	})
}

// PartialUpdate changes only the fields set in patch.
func (s *StudentService) PartialUpdate(ctx context.Context, caller domain.Identity, id int64, patch domain.StudentPatch) (*domain.Student, error) {
	if err := s.authorize(caller, auth.OpUpdateStudent); err != nil {
		return nil, err
	}

	return s.save(ctx, caller, id, func(current *domain.Student) {
		if patch.Name != nil {
			current.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.RollNo != nil {
			current.RollNo = *patch.RollNo
		}
		if patch.Branch != nil {
			current.Branch = strings.TrimSpace(*patch.Branch)
		}
		if patch.Course != nil {
			current.Course = strings.TrimSpace(*patch.Course)
		}
	})
}

// Delete removes a record.
func (s *StudentService) Delete(ctx context.Context, caller domain.Identity, id int64) error {
	if err := s.authorize(caller, auth.OpDeleteStudent); err != nil {
		return err
	}

	err := s.students.Delete(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("Student", map[string]any{"id": id})
	case err != nil:
		return apperrors.NewInternalError(fmt.Errorf("delete student: %w", err))
	}

	s.logger.Info("student deleted", zap.String("by", caller.Username), zap.Int64("id", id))
	return nil
}

// SearchByName matches records whose name contains name, ignoring case.
func (s *StudentService) SearchByName(ctx context.Context, caller domain.Identity, name string) ([]domain.Student, error) {
	return s.filter(ctx, caller, "name", name, s.students.SearchByName)
}

// ListByBranch returns records in branch, ignoring case.
func (s *StudentService) ListByBranch(ctx context.Context, caller domain.Identity, branch string) ([]domain.Student, error) {
	return s.filter(ctx, caller, "branch", branch, s.students.ListByBranch)
}

// ListByCourse returns records in course, ignoring case.
func (s *StudentService) ListByCourse(ctx context.Context, caller domain.Identity, course string) ([]domain.Student, error) {
	return s.filter(ctx, caller, "course", course, s.students.ListByCourse)
}

func (s *StudentService) filter(
	ctx context.Context,
	caller domain.Identity,
	field, value string,
	query func(context.Context, string) ([]domain.Student, error),
) ([]domain.Student, error) {
	if err := s.authorize(caller, auth.OpSearchStudents); err != nil {
		return nil, err
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.NewValidationError(field+" is required", map[string]any{field: "must not be blank"})
	}

	students, err := query(ctx, value)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("filter students by %s: %w", field, err))
	}
	return students, nil
}

func (s *StudentService) save(ctx context.Context, caller domain.Identity, id int64, apply func(*domain.Student)) (*domain.Student, error) {
	current, err := s.students.GetByID(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Student", map[string]any{"id": id})
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("get student: %w", err))
	}

	previousRollNo := current.RollNo
	apply(current)
	if err := validateStudent(current); err != nil {
		return nil, err
	}
	if current.RollNo != previousRollNo {
		if err := s.ensureRollNoFree(ctx, current.RollNo); err != nil {
			return nil, err
		}
	}

	if err := s.students.Update(ctx, current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Student", map[string]any{"id": id})
		}
		return nil, writeError("update student", err)
	}

	s.logger.Info("student updated",
		zap.String("by", caller.Username), zap.Int64("id", id),
		zap.Int("old_roll_no", previousRollNo), zap.Int("roll_no", current.RollNo))
	return current, nil
}

func (s *StudentService) ensureRollNoFree(ctx context.Context, rollNo int) error {
	taken, err := s.students.ExistsByRollNo(ctx, rollNo)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("check roll number: %w", err))
	}
	if taken {
		return duplicateRollNo(rollNo)
	}
	return nil
}

func (s *StudentService) authorize(caller domain.Identity, op auth.Operation) error {
	if err := auth.Authorize(caller, op, nil); err != nil {
		s.logDenied(caller, op)
		return err
	}
	return nil
}

func (s *StudentService) denied(caller domain.Identity, op auth.Operation, message string) error {
	s.logDenied(caller, op)
	return apperrors.NewAccessDenied(message)
}

func (s *StudentService) logDenied(caller domain.Identity, op auth.Operation) {
	s.logger.Warn("access denied",
		zap.String("username", caller.Username),
		zap.String("role", string(caller.Role)),
		zap.Int("roll_no", caller.RollNo),
		zap.String("operation", string(op)),
	)
}

func (in StudentInput) toStudent() *domain.Student {
	return &domain.Student{
		Name:   strings.TrimSpace(in.Name),
		RollNo: in.RollNo,
		Branch: strings.TrimSpace(in.Branch),
		Course: strings.TrimSpace(in.Course),
	}
}

func duplicateRollNo(rollNo int) error {
	return apperrors.NewConflict("rollNo", fmt.Sprintf("Student with roll number %d already exists", rollNo))
}

func writeError(action string, err error) error {
	if field, ok := repository.UniqueViolationField(err); ok && field == "rollNo" {
		return apperrors.NewConflict(field, "Student roll number already exists")
	}
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", action, err))
}
