package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/gartstein/empleados/internal/employee/controller"
	"github.com/gartstein/empleados/internal/employee/db"
	"github.com/gartstein/empleados/internal/employee/events"
	"github.com/gartstein/empleados/internal/employee/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newStack wires the real service and an in-memory sqlite repository behind
// the router.
func newStack(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	repo, err := db.NewRepository(&db.Config{
		Driver: db.DriverSQLite,
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, m)
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate())
	t.Cleanup(func() { _ = repo.Close() })

	service := controller.NewEmployeeService(repo, events.NopProducer{}, logger)
	router := NewRouter(
		RouterConfig{BodyLimitBytes: 1 << 20},
		NewEmployeeHandler(service, logger),
		NewHealthChecker(repo, nil, logger),
		m,
		reg,
		logger,
	)
	return router
}

func decodeEmployee(t *testing.T, body []byte) employeeJSON {
	t.Helper()
	var out employeeJSON
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestScenario_CreateGetUpdate(t *testing.T) {
	router := newStack(t)

	rec := doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"Ana","apellido":"Diaz","email":"ana@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeEmployee(t, rec.Body.Bytes())
	require.NotZero(t, created.ID)
	path := "/api/v1/empleados/" + strconv.FormatInt(created.ID, 10)

	rec = doRequest(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeEmployee(t, rec.Body.Bytes()))

	rec = doRequest(router, http.MethodPut, path,
		`{"nombre":"Ana María","apellido":"Diaz","email":"ana@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, employeeJSON{ID: created.ID, FirstName: "Ana María", LastName: "Diaz", Email: "ana@x.com"},
		decodeEmployee(t, rec.Body.Bytes()))

	rec = doRequest(router, http.MethodGet, "/api/v1/empleados/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No existe el empleado con el ID : 99", decodeError(t, rec).Message)

	rec = doRequest(router, http.MethodGet, "/api/v1/empleados", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []employeeJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, []employeeJSON{{ID: created.ID, FirstName: "Ana María", LastName: "Diaz", Email: "ana@x.com"}}, all)
}

func TestScenario_ListContainsEveryCreatedID(t *testing.T) {
	router := newStack(t)

	ids := map[int64]bool{}
	for i := range 3 {
		rec := doRequest(router, http.MethodPost, "/api/v1/empleados",
			`{"nombre":"N","apellido":"A","email":"e`+strconv.Itoa(i)+`@x.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		ids[decodeEmployee(t, rec.Body.Bytes()).ID] = true
	}

	rec := doRequest(router, http.MethodGet, "/api/v1/empleados", "")
	var all []employeeJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 3)
	for _, emp := range all {
		assert.True(t, ids[emp.ID])
	}
}

func TestScenario_DuplicateEmail(t *testing.T) {
	router := newStack(t)

	first := doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"Ana","apellido":"Diaz","email":"ana@x.com"}`)
	require.Equal(t, http.StatusOK, first.Code)

	rec := doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"Otra","apellido":"Persona","email":"ana@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	other := doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"Luis","apellido":"Gil","email":"luis@x.com"}`)
	require.Equal(t, http.StatusOK, other.Code)
	path := "/api/v1/empleados/" + strconv.FormatInt(decodeEmployee(t, other.Body.Bytes()).ID, 10)

	rec = doRequest(router, http.MethodPut, path, `{"nombre":"Luis","apellido":"Gil","email":"ana@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doRequest(router, http.MethodGet, path, "")
	assert.Equal(t, "luis@x.com", decodeEmployee(t, rec.Body.Bytes()).Email)
}

func TestScenario_UpdateUnknownIDWritesNothing(t *testing.T) {
	router := newStack(t)

	rec := doRequest(router, http.MethodPut, "/api/v1/empleados/42",
		`{"nombre":"X","apellido":"Y","email":"z@x.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No existe el empleado con el ID : 42", decodeError(t, rec).Message)

	rec = doRequest(router, http.MethodGet, "/api/v1/empleados", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestScenario_ColumnConstraints(t *testing.T) {
	router := newStack(t)

	rec := doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"","apellido":"Diaz","email":"ana@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, "empty string satisfies NOT NULL")
	kept := decodeEmployee(t, rec.Body.Bytes())

	rec = doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"nombre":"Ana","apellido":"`+strings.Repeat("a", 61)+`","email":"luis@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec).Message)

	rec = doRequest(router, http.MethodPost, "/api/v1/empleados",
		`{"apellido":"Diaz","email":"eva@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	path := "/api/v1/empleados/" + strconv.FormatInt(kept.ID, 10)
	rec = doRequest(router, http.MethodPut, path,
		`{"nombre":"`+strings.Repeat("n", 61)+`","apellido":"Diaz","email":"ana@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/empleados", "")
	var all []employeeJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, []employeeJSON{kept}, all, "rejected writes must leave storage unchanged")
}

func TestScenario_MetricsExposed(t *testing.T) {
	router := newStack(t)

	doRequest(router, http.MethodGet, "/api/v1/empleados/5", "")
	rec := doRequest(router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `empleados_http_requests_total{method="GET",route="/api/v1/empleados/{id}",status="404"} 1`)
	assert.Contains(t, rec.Body.String(), "empleados_db_query_duration_seconds")
}

func TestScenario_Readiness(t *testing.T) {
	router := newStack(t)

	rec := doRequest(router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"database":"ok"}`, rec.Body.String())
}
