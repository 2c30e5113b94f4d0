package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/empleados/internal/employee/errors"
	"github.com/gartstein/empleados/internal/employee/models"
	"go.uber.org/zap"
)

// employeeJSON is the wire representation of an employee.
type employeeJSON struct {
	ID        int64  `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
}

// employeeRequest is the create and update payload. Fields are pointers so
// that an absent or null value can be told apart from an empty string.
type employeeRequest struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Email     *string `json:"email"`
}

// errorJSON is the body of every non-2xx response.
type errorJSON struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

// requestToModel converts a create payload into an Employee. The ID is left
// for storage to assign.
func requestToModel(body *employeeRequest) (*models.Employee, error) {
	if err := body.notNull(); err != nil {
		return nil, err
	}
	return &models.Employee{
		FirstName: *body.FirstName,
		LastName:  *body.LastName,
		Email:     *body.Email,
	}, nil
}

// requestToUpdate converts an update payload into an EmployeeUpdate for id.
// Any id in the body is ignored.
func requestToUpdate(body *employeeRequest, id int64) (*models.EmployeeUpdate, error) {
	if err := body.notNull(); err != nil {
		return nil, err
	}
	return &models.EmployeeUpdate{
		ID:        id,
		FirstName: *body.FirstName,
		LastName:  *body.LastName,
		Email:     *body.Email,
	}, nil
}

// notNull reports absent or null fields as a NOT NULL column violation.
func (b *employeeRequest) notNull() error {
	var missing []string
	if b.FirstName == nil {
		missing = append(missing, "nombre")
	}
	if b.LastName == nil {
		missing = append(missing, "apellido")
	}
	if b.Email == nil {
		missing = append(missing, "email")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s must not be null", e.ErrConstraintViolation, strings.Join(missing, ", "))
}

func modelToResponse(employee *models.Employee) employeeJSON {
	return employeeJSON{
		ID:        employee.ID,
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Email:     employee.Email,
	}
}

func modelsToResponse(employees []models.Employee) []employeeJSON {
	out := make([]employeeJSON, 0, len(employees))
	for i := range employees {
		out = append(out, modelToResponse(&employees[i]))
	}
	return out
}

// writeJSON encodes every JSON body the service sends.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("write json failed", zap.Error(err))
	}
}

func (h *EmployeeHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, h.logger, status, payload)
}

func (h *EmployeeHandler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, status, errorJSON{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	})
}
