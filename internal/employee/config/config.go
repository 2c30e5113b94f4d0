// Package config loads service settings from a YAML file, an optional .env
// file and EMPLEADOS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gartstein/empleados/internal/employee/db"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "EMPLEADOS"

// Config holds every setting of the service.
type Config struct {
	Env                string        `validate:"required"`
	HTTPPort           int           `validate:"min=1,max=65535"`
	GRPCPort           int           `validate:"min=0,max=65535"` // 0 disables the gRPC health listener
	DBDriver           string        `validate:"oneof=postgres sqlite"`
	DBHost             string        `validate:"required_if=DBDriver postgres"`
	DBPort             int           `validate:"min=0,max=65535"`
	DBUser             string
	DBPassword         string
	DBName             string
	DBSSLMode          string
	DBPath             string        `validate:"required_if=DBDriver sqlite"`
	DBAutoMigrate      bool
	DBConnectTimeout   time.Duration `validate:"gt=0"`
	KafkaBrokers       []string
	Topic              string        `validate:"required_with=KafkaBrokers"`
	CORSAllowedOrigins []string
	BodyLimitBytes     int64         `validate:"min=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 9090)
	v.SetDefault("db_driver", db.DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "empleados")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "empleados.db")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("db_connect_timeout", 30*time.Second)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("topic", "empleados")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("body_limit_bytes", 1<<20)
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		values := map[string]any{}
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &Config{
		Env:                v.GetString("env"),
		HTTPPort:           v.GetInt("http_port"),
		GRPCPort:           v.GetInt("grpc_port"),
		DBDriver:           strings.ToLower(v.GetString("db_driver")),
		DBHost:             v.GetString("db_host"),
		DBPort:             v.GetInt("db_port"),
		DBUser:             v.GetString("db_user"),
		DBPassword:         v.GetString("db_password"),
		DBName:             v.GetString("db_name"),
		DBSSLMode:          v.GetString("db_sslmode"),
		DBPath:             v.GetString("db_path"),
		DBAutoMigrate:      v.GetBool("db_auto_migrate"),
		DBConnectTimeout:   v.GetDuration("db_connect_timeout"),
		KafkaBrokers:       list(v, "kafka_brokers"),
		Topic:              v.GetString("topic"),
		CORSAllowedOrigins: list(v, "cors_allowed_origins"),
		BodyLimitBytes:     v.GetInt64("body_limit_bytes"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// list accepts a YAML sequence or a comma/space separated string.
func list(v *viper.Viper, key string) []string {
	items := v.GetStringSlice(key)
	if s, ok := v.Get(key).(string); ok {
		items = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' '
		})
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DBConfig returns the repository settings.
func (c *Config) DBConfig() *db.Config {
	return &db.Config{
		Driver:   c.DBDriver,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
		Path:     c.DBPath,
	}
}

// KafkaEnabled reports whether change events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
