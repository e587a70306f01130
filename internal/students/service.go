package students

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholaris/scholaris/internal/platform/httpx"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	List(ctx context.Context) ([]Student, error)
	Get(ctx context.Context, id int64) (Student, error)
	Create(ctx context.Context, input CreateStudentInput) (Student, error)
	Update(ctx context.Context, id int64, input UpdateStudentInput) (Student, error)
}

// Service handles student enrolment logic. Student data never feeds
// authorization, so mutations here do not touch the permission caches.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns active students.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

// Get returns one student.
func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.Get(ctx, id)
}

// Create enrols a new student.
func (s *Service) Create(ctx context.Context, input CreateStudentInput) (Student, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.AdmissionNo = strings.TrimSpace(input.AdmissionNo)
	if input.FirstName == "" || input.LastName == "" || input.AdmissionNo == "" {
		return Student{}, fmt.Errorf("first name, last name and admission no are required: %w", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, input)
}

// Update changes a student's record.
func (s *Service) Update(ctx context.Context, id int64, input UpdateStudentInput) (Student, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.FirstName == "" || input.LastName == "" {
		return Student{}, fmt.Errorf("first name and last name are required: %w", httpx.ErrValidation)
	}
	return s.repo.Update(ctx, id, input)
}
