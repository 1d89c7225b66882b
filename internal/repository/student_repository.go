package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/student-auth/internal/domain"
)

// StudentRepository encapsulates student record persistence.
type StudentRepository interface {
	List(ctx context.Context) ([]domain.Student, error)
	GetByID(ctx context.Context, id int64) (*domain.Student, error)
	GetByRollNo(ctx context.Context, rollNo int) (*domain.Student, error)
	ExistsByRollNo(ctx context.Context, rollNo int) (bool, error)
	Create(ctx context.Context, student *domain.Student) error
	Update(ctx context.Context, student *domain.Student) error
	Delete(ctx context.Context, id int64) error
	SearchByName(ctx context.Context, name string) ([]domain.Student, error)
	ListByBranch(ctx context.Context, branch string) ([]domain.Student, error)
	ListByCourse(ctx context.Context, course string) ([]domain.Student, error)
}

type studentRepository struct {
	db DB
}

// NewStudentRepository instantiates repository.
func NewStudentRepository(db DB) StudentRepository {
	return &studentRepository{db: db}
}

const studentColumns = `id, name, roll_no, branch, course, created_at, updated_at`

func (r *studentRepository) List(ctx context.Context) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students ORDER BY roll_no`)
}

func (r *studentRepository) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	return r.getOne(ctx, `SELECT `+studentColumns+` FROM students WHERE id=$1`, id)
}

func (r *studentRepository) GetByRollNo(ctx context.Context, rollNo int) (*domain.Student, error) {
	return r.getOne(ctx, `SELECT `+studentColumns+` FROM students WHERE roll_no=$1`, rollNo)
}

func (r *studentRepository) ExistsByRollNo(ctx context.Context, rollNo int) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE roll_no=$1)`, rollNo).Scan(&found)
	return found, err
}

func (r *studentRepository) Create(ctx context.Context, student *domain.Student) error {
	const query = `
        INSERT INTO students (name, roll_no, branch, course)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		student.Name,
		student.RollNo,
		student.Branch,
		student.Course,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
}

func (r *studentRepository) Update(ctx context.Context, student *domain.Student) error {
	const query = `
        UPDATE students SET name=$1, roll_no=$2, branch=$3, course=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	return r.db.QueryRow(ctx, query,
		student.Name,
		student.RollNo,
		student.Branch,
		student.Course,
		student.ID,
	).Scan(&student.UpdatedAt)
}

func (r *studentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM students WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *studentRepository) SearchByName(ctx context.Context, name string) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students
        WHERE name ILIKE '%' || $1 || '%'
        ORDER BY roll_no`, name)
}

func (r *studentRepository) ListByBranch(ctx context.Context, branch string) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students
        WHERE LOWER(branch) = LOWER($1)
        ORDER BY roll_no`, branch)
}

func (r *studentRepository) ListByCourse(ctx context.Context, course string) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students
        WHERE LOWER(course) = LOWER($1)
        ORDER BY roll_no`, course)
}

func (r *studentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Student, error) {
	var s domain.Student
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Name, &s.RollNo, &s.Branch, &s.Course, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Student, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]domain.Student, 0)
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.RollNo, &s.Branch, &s.Course, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
