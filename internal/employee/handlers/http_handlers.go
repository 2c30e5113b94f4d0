package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	e "github.com/gartstein/empleados/internal/employee/errors"
	"github.com/gartstein/empleados/internal/employee/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EmployeeController defines the business logic interface
// that the HTTP handlers invoke.
type EmployeeController interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
}

// EmployeeHandler serves the /empleados resource, mapping requests to an
// EmployeeController.
type EmployeeHandler struct {
	service EmployeeController
	logger  *zap.Logger
}

// NewEmployeeHandler constructs a new EmployeeHandler with the given service and logger.
func NewEmployeeHandler(service EmployeeController, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// RegisterRoutes mounts the employee routes on r.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/empleados", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Post("/", h.CreateEmployee)
		r.Get("/{id}", h.GetEmployee)
		r.Put("/{id}", h.UpdateEmployee)
	})
}

// ListEmployees returns every employee as a JSON array.
func (h *EmployeeHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, modelsToResponse(employees))
}

// CreateEmployee stores the employee in the request body and returns it
// with its generated id.
func (h *EmployeeHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}

	employee, err := requestToModel(body)
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	created, err := h.service.CreateEmployee(r.Context(), employee)
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, modelToResponse(created))
}

// GetEmployee fetches an employee by the id in the path.
func (h *EmployeeHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, modelToResponse(employee))
}

// UpdateEmployee overwrites nombre, apellido and email of the employee
// identified by the path.
func (h *EmployeeHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	body, ok := h.decode(w, r)
	if !ok {
		return
	}

	update, err := requestToUpdate(body, id)
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	updated, err := h.service.UpdateEmployee(r.Context(), update)
	if err != nil {
		h.mapServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, modelToResponse(updated))
}

func (h *EmployeeHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid employee ID")
		return 0, false
	}
	return id, true
}

func (h *EmployeeHandler) decode(w http.ResponseWriter, r *http.Request) (*employeeRequest, bool) {
	var body employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.writeError(w, r, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}
	return &body, true
}

// mapServiceError translates service errors into HTTP responses. Only a
// missing employee has its own status; duplicate emails, column constraint
// violations and other storage failures answer 500.
func (h *EmployeeHandler) mapServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		var notFound *e.NotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, r, http.StatusNotFound, notFound.Error())
			return
		}
		h.writeError(w, r, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
