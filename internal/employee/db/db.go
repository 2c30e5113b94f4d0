package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/empleados/internal/employee/db/models"
	e "github.com/gartstein/empleados/internal/employee/errors"
	"github.com/gartstein/empleados/internal/employee/metrics"
	"github.com/gartstein/empleados/internal/employee/models"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// SQLSTATE codes
	uniqueViolation  = "23505"
	notNullViolation = "23502"
	stringTruncation = "22001"

	sqliteDialect = "sqlite3"
)

type Repository struct {
	db       *gorm.DB
	dialect  string
	metrics  *metrics.Metrics
	validate *validator.Validate
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the database file used by the sqlite driver.
	Path string
}

func (c *Config) dialector() (gorm.Dialector, string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		return postgres.Open(dsn), "postgres", nil
	case DriverSQLite:
		return sqlite.Open(c.Path), sqliteDialect, nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func NewRepository(cfg *Config, m *metrics.Metrics) (*Repository, error) {
	dialector, dialect, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{db: db, dialect: dialect, metrics: m, validate: newColumnValidator()}, nil
}

func newColumnValidator() *validator.Validate {
	validate := validator.New()
	// Report violations with the column names (nombre, apellido, email).
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

// Connect opens the repository, retrying with exponential backoff until
// maxElapsed passes or ctx is cancelled.
func Connect(ctx context.Context, cfg *Config, m *metrics.Metrics, maxElapsed time.Duration, logger *zap.Logger) (*Repository, error) {
	if _, _, err := cfg.dialector(); err != nil {
		return nil, err
	}
	// A zero MaxElapsedTime makes the backoff retry forever.
	if maxElapsed <= 0 {
		return nil, fmt.Errorf("connect timeout must be positive, got %s", maxElapsed)
	}
	logger = logger.Named("repository")

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	var repo *Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = NewRepository(cfg, m)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("database not reachable, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// AutoMigrate creates or updates the empleados table from the storage record.
func (r *Repository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&dbmodels.Employee{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// MigrateUp applies the SQL migrations found in dir.
func (r *Repository) MigrateUp(dir string) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := goose.SetDialect(r.dialect); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (r *Repository) FindAll(ctx context.Context) ([]models.Employee, error) {
	defer r.metrics.ObserveQuery("find_all", time.Now())

	var records []dbmodels.Employee
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	employees := make([]models.Employee, 0, len(records))
	for i := range records {
		employees = append(employees, *toModel(&records[i]))
	}
	return employees, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	defer r.metrics.ObserveQuery("find_by_id", time.Now())

	var record dbmodels.Employee
	result := r.db.WithContext(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.NotFound(id)
		}
		return nil, result.Error
	}
	return toModel(&record), nil
}

// Save inserts employee when its ID is zero and updates the stored row
// otherwise. On insert the generated ID is written back to employee.
func (r *Repository) Save(ctx context.Context, employee *models.Employee) error {
	defer r.metrics.ObserveQuery("save_employee", time.Now())

	if err := r.checkColumns(employee); err != nil {
		return err
	}
	record := toRecord(employee)
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return translateError(err)
	}
	employee.ID = record.ID
	return nil
}

// EmailTaken reports whether an employee other than exceptID already uses email.
func (r *Repository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	defer r.metrics.ObserveQuery("email_taken", time.Now())

	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Employee{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// checkColumns enforces the varchar(60) limits, which sqlite does not.
func (r *Repository) checkColumns(employee *models.Employee) error {
	if r.dialect != sqliteDialect {
		return nil
	}
	err := r.validate.Struct(employee)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", e.ErrConstraintViolation, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "max" {
			problems = append(problems, fe.Field()+" must be at most "+fe.Param()+" characters")
			continue
		}
		problems = append(problems, fe.Field()+" is invalid")
	}
	return fmt.Errorf("%w: %s", e.ErrConstraintViolation, strings.Join(problems, ", "))
}

// translateError maps unique violations from either driver to
// ErrDuplicateEmail and postgres NOT NULL or length violations to
// ErrConstraintViolation.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	isPg := errors.As(err, &pgErr)
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), isPg && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%w: %v", e.ErrDuplicateEmail, err)
	case isPg && (pgErr.Code == notNullViolation || pgErr.Code == stringTruncation):
		return fmt.Errorf("%w: %v", e.ErrConstraintViolation, err)
	}
	return err
}

func toModel(record *dbmodels.Employee) *models.Employee {
	return &models.Employee{
		ID:        record.ID,
		FirstName: record.FirstName,
		LastName:  record.LastName,
		Email:     record.Email,
	}
}

func toRecord(employee *models.Employee) *dbmodels.Employee {
	return &dbmodels.Employee{
		ID:        employee.ID,
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Email:     employee.Email,
	}
}
