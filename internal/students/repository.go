package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for students.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const studentColumns = `id, first_name, last_name, admission_no, COALESCE(class_name, ''), COALESCE(guardian_phone, ''), is_active, enrolled_at, created_at, updated_at`

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.AdmissionNo, &s.ClassName, &s.GuardianPhone, &s.IsActive, &s.EnrolledAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List returns active students ordered by last name.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE is_active = TRUE
		ORDER BY last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Get fetches one student by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, fmt.Errorf("student %d: %w", id, httpx.ErrNotFound)
		}
		return Student{}, err
	}
	return s, nil
}

// Create inserts a new student.
func (r *Repository) Create(ctx context.Context, input CreateStudentInput) (Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, `
		INSERT INTO students (first_name, last_name, admission_no, class_name, guardian_phone, is_active, enrolled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW(), NOW())
		RETURNING `+studentColumns,
		input.FirstName, input.LastName, input.AdmissionNo, input.ClassName, input.GuardianPhone))
	if err != nil {
		if isUniqueViolation(err) {
			return Student{}, fmt.Errorf("admission no %q: %w", input.AdmissionNo, httpx.ErrDuplicate)
		}
		return Student{}, err
	}
	return s, nil
}

// Update changes the mutable fields of a student.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateStudentInput) (Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, `
		UPDATE students SET first_name = $2, last_name = $3, class_name = $4, guardian_phone = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+studentColumns,
		id, input.FirstName, input.LastName, input.ClassName, input.GuardianPhone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, fmt.Errorf("student %d: %w", id, httpx.ErrNotFound)
		}
		return Student{}, err
	}
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
