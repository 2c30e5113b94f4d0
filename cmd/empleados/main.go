package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/empleados/internal/employee/config"
	"github.com/gartstein/empleados/internal/employee/controller"
	"github.com/gartstein/empleados/internal/employee/db"
	"github.com/gartstein/empleados/internal/employee/events"
	"github.com/gartstein/empleados/internal/employee/handlers"
	"github.com/gartstein/empleados/internal/employee/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
)

const envLocal = "local"

type producer interface {
	controller.EventProducer
	Close()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger depends on the configured environment.
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg.Env)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := db.Connect(ctx, cfg.DBConfig(), appMetrics, cfg.DBConnectTimeout, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()
	if cfg.DBAutoMigrate {
		if err := repo.AutoMigrate(); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	eventProducer := initProducer(cfg, logger, appMetrics)
	defer eventProducer.Close()

	employeeSvc := controller.NewEmployeeService(repo, eventProducer, logger)

	healthSrv := health.NewServer()
	router := handlers.NewRouter(
		handlers.RouterConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			BodyLimitBytes: cfg.BodyLimitBytes,
		},
		handlers.NewEmployeeHandler(employeeSvc, logger),
		handlers.NewHealthChecker(repo, healthSrv, logger),
		appMetrics,
		reg,
		logger,
	)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, router, healthSrv, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger returns a development logger for local runs and a production
// JSON logger otherwise.
func initLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == envLocal {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initProducer connects to Kafka when brokers are configured. Without
// brokers, or when the broker is unreachable, events are discarded.
func initProducer(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) producer {
	if !cfg.KafkaEnabled() {
		logger.Info("Kafka brokers not configured, change events disabled")
		return events.NopProducer{}
	}
	p, err := events.NewProducer(cfg.KafkaBrokers, cfg.Topic, logger, m)
	if err != nil {
		logger.Error("failed to initialize Kafka producer, change events disabled", zap.Error(err))
		return events.NopProducer{}
	}
	return p
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
