// Package handlers exposes the employee service over HTTP (chi router,
// JSON handlers, middleware) and runs the gRPC health endpoint next to it.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 5 * time.Second

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server serving handler on httpPort and the gRPC
// health service on grpcPort. A grpcPort of zero disables the gRPC listener.
func NewServer(
	grpcPort int,
	httpPort int,
	handler http.Handler,
	healthSrv *health.Server,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	if healthSrv == nil {
		healthSrv = health.NewServer()
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", httpPort),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		health:       healthSrv,
		logger:       logger.Named("server"),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	if grpcPort > 0 {
		s.grpcServer = grpc.NewServer(grpcOpts...)
		s.grpcEndpoint = fmt.Sprintf(":%d", grpcPort)
		healthpb.RegisterHealthServer(s.grpcServer, healthSrv)
	}
	return s
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if s.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("Starting gRPC health server", zap.String("endpoint", s.grpcEndpoint))
			lis, err := net.Listen("tcp", s.grpcEndpoint)
			if err != nil {
				errChan <- fmt.Errorf("gRPC listen error: %w", err)
				return
			}
			if err := s.grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("gRPC serve error: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop marks the service NOT_SERVING and gracefully shuts down both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
