// Package grpc содержит реализацию gRPC сервера аналитики ссылок
package grpc

import (
	"context"
	"errors"

	"github.com/tempizhere/linkpulse/internal/grpc/proto"
	"github.com/tempizhere/linkpulse/internal/repository"
	"github.com/tempizhere/linkpulse/internal/stats"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server реализует gRPC сервис аналитики
type Server struct {
	proto.UnimplementedAnalyticsServer
	stats  *stats.Aggregator
	repo   repository.Repository
	logger *zap.Logger
}

// NewServer создаёт новый gRPC сервер
func NewServer(aggregator *stats.Aggregator, repo repository.Repository, logger *zap.Logger) *Server {
	return &Server{
		stats:  aggregator,
		repo:   repo,
		logger: logger,
	}
}

// GetStats возвращает сводку по ссылке
func (s *Server) GetStats(ctx context.Context, req *proto.GetStatsRequest) (*proto.GetStatsResponse, error) {
	if req.LinkID == "" {
		return nil, status.Error(codes.InvalidArgument, "link ID is required")
	}

	summary, err := s.stats.Summarize(ctx, req.LinkID)
	if err != nil {
		return nil, s.mapError(req.LinkID, err)
	}
	return &proto.GetStatsResponse{Stats: *summary}, nil
}

// ListClicks возвращает все переходы по ссылке
func (s *Server) ListClicks(ctx context.Context, req *proto.ListClicksRequest) (*proto.ListClicksResponse, error) {
	if req.LinkID == "" {
		return nil, status.Error(codes.InvalidArgument, "link ID is required")
	}

	clicks, err := s.stats.Clicks(ctx, req.LinkID)
	if err != nil {
		return nil, s.mapError(req.LinkID, err)
	}
	return &proto.ListClicksResponse{Clicks: clicks}, nil
}

// Ping проверяет состояние хранилища
func (s *Server) Ping(ctx context.Context, _ *proto.PingRequest) (*proto.PingResponse, error) {
	if s.repo == nil {
		return &proto.PingResponse{DatabaseAvailable: false}, nil
	}
	err := s.repo.Ping(ctx)
	return &proto.PingResponse{DatabaseAvailable: err == nil}, nil
}

// mapError преобразует ошибки аналитики в gRPC статусы
func (s *Server) mapError(linkID string, err error) error {
	if errors.Is(err, stats.ErrNotFound) {
		return status.Error(codes.NotFound, "link not found")
	}
	s.logger.Error("Unexpected error", zap.String("link_id", linkID), zap.Error(err))
	return status.Error(codes.Internal, "internal server error")
}
