// Package grpc exposes the standard gRPC health service for the bot process.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

const (
	// ServiceDatabase reports the database connection
	ServiceDatabase = "clanwarden.Database"
	// ServiceDiscord reports the gateway connection
	ServiceDiscord = "clanwarden.Discord"

	checkTimeout = 3 * time.Second
)

// HealthChecker pings the database
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ReadyChecker reports whether the gateway connection is up
type ReadyChecker interface {
	Ready() bool
}

// Server wraps the gRPC server
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	db         HealthChecker
	bot        ReadyChecker
	logger     *zap.Logger
}

// NewServer creates a gRPC server listening on port
func NewServer(db HealthChecker, bot ReadyChecker, port string, logger *zap.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", ":"+port) //nolint:noctx // Server initialization doesn't require context
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	logger.Info("gRPC server configured", zap.String("port", port))
	return newServer(lis, db, bot, logger), nil
}

func newServer(lis net.Listener, db HealthChecker, bot ReadyChecker, logger *zap.Logger) *Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor(logger)),
	)

	hs := health.NewServer()
	for _, svc := range []string{"", ServiceDatabase, ServiceDiscord} {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	healthpb.RegisterHealthServer(grpcServer, hs)

	// allows tools like grpcurl
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		listener:   lis,
		db:         db,
		bot:        bot,
		logger:     logger,
	}
}

// Refresh checks the database and gateway and publishes their status.
// The overall status is SERVING only when both are up.
func (s *Server) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	dbUp := s.db.Health(ctx) == nil
	botUp := s.bot.Ready()

	s.health.SetServingStatus(ServiceDatabase, servingStatus(dbUp))
	s.health.SetServingStatus(ServiceDiscord, servingStatus(botUp))
	s.health.SetServingStatus("", servingStatus(dbUp && botUp))
}

// WatchHealth refreshes the health status every interval until ctx is cancelled
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Serve starts the gRPC server
func (s *Server) Serve() error {
	s.logger.Info("starting gRPC server", zap.String("address", s.listener.Addr().String()))

	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop reports NOT_SERVING to watchers and drains open calls
func (s *Server) GracefulStop() {
	s.logger.Info("gracefully stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Stop immediately stops the gRPC server
func (s *Server) Stop() {
	s.logger.Info("stopping gRPC server")
	s.grpcServer.Stop()
}

func servingStatus(up bool) healthpb.HealthCheckResponse_ServingStatus {
	if up {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// loggingInterceptor logs all unary gRPC requests
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("gRPC request failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		logger.Debug("gRPC request completed", fields...)
		return resp, nil
	}
}
