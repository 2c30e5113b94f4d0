// Package controller implements the core business logic (service layer)
// for managing Employee entities, orchestrating repository operations
// and sending change events.
package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/empleados/internal/employee/errors"
	"github.com/gartstein/empleados/internal/employee/events"
	"github.com/gartstein/empleados/internal/employee/models"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, employee *models.Employee)
}

// Repository defines the storage interface for Employee objects.
type Repository interface {
	FindAll(ctx context.Context) ([]models.Employee, error)
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
	Save(ctx context.Context, employee *models.Employee) error
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
}

// EmployeeService provides methods to manage employees via repository
// operations and event production.
type EmployeeService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewEmployeeService constructs an EmployeeService with a repository,
// an event producer, and a logger.
func NewEmployeeService(repo Repository, producer EventProducer, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("employee_service"),
	}
}

// ListEmployees returns every stored employee.
func (s *EmployeeService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// CreateEmployee stores a new Employee after checking email uniqueness and
// triggers an event. Any client-supplied ID is discarded. Column constraint
// violations come back from storage as ErrConstraintViolation.
func (s *EmployeeService) CreateEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	employee.ID = 0
	if err := s.ensureEmailFree(ctx, employee.Email, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	s.producer.Produce(events.EmployeeCreated, employee)
	return employee, nil
}

// GetEmployee retrieves an Employee by ID, returning a NotFoundError if absent.
func (s *EmployeeService) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return employee, nil
}

// UpdateEmployee overwrites the name, last name and email of an existing
// Employee. Nothing is written when the employee does not exist.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	employee, err := s.GetEmployee(ctx, update.ID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, update.Email, employee.ID); err != nil {
		return nil, err
	}

	update.Apply(employee)
	if err := s.repo.Save(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	s.producer.Produce(events.EmployeeUpdated, employee)
	return employee, nil
}

func (s *EmployeeService) ensureEmailFree(ctx context.Context, email string, exceptID int64) error {
	taken, err := s.repo.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	if taken {
		s.logger.Warn("email already in use", zap.String("email", email), zap.Int64("except_id", exceptID))
		return fmt.Errorf("%w: %s", e.ErrDuplicateEmail, email)
	}
	return nil
}
