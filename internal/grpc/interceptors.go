package grpc

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/grpc/proto"
	"github.com/tempizhere/linkpulse/internal/identity"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Options содержит зависимости интерцепторов сервера
type Options struct {
	Admission *admission.Controller
	Tiers     middleware.Tiers
	Verifier  identity.Verifier
	Metrics   *metrics.Metrics
	// TrustedSubnet ограничивает доступ к аналитике; пустое значение оставляет её открытой
	TrustedSubnet string
	Logger        *zap.Logger
}

// NewGRPCServer создаёт gRPC сервер с зарегистрированным сервисом аналитики и цепочкой интерцепторов
func NewGRPCServer(srv proto.AnalyticsServer, opts Options) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(opts.Logger)}
	if opts.TrustedSubnet != "" {
		interceptors = append(interceptors, TrustedSubnetInterceptor(opts.TrustedSubnet, opts.Logger))
	}
	if opts.Admission != nil {
		interceptors = append(interceptors, AdmissionInterceptor(opts.Admission, opts.Tiers, opts.Verifier, opts.Metrics, opts.Logger))
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	proto.RegisterAnalyticsServer(s, srv)
	return s
}

// peerAddr возвращает IP-адрес клиента или пустую строку
func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if tcpAddr, ok := p.Addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
		return host
	}
	return p.Addr.String()
}

// AdmissionInterceptor применяет к вызовам тот же контроль частоты, что и HTTP-сервер.
// Вызывающий определяется по bearer-токену из метаданных "authorization", иначе по адресу.
func AdmissionInterceptor(controller *admission.Controller, tiers middleware.Tiers, verifier identity.Verifier, m *metrics.Metrics, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod == proto.PingFullMethod {
			return handler(ctx, req)
		}

		addr := peerAddr(ctx)
		if addr == "" {
			addr = "unknown"
		}
		key, tier := "ip:"+addr, tiers.Anonymous

		if md, ok := metadata.FromIncomingContext(ctx); ok && verifier != nil {
			if values := md.Get("authorization"); len(values) > 0 {
				if token, ok := identity.BearerToken(values[0]); ok {
					subject, err := verifier.Verify(ctx, token)
					switch {
					case err == nil:
						key, tier = subject, tiers.Verified
					case !errors.Is(err, identity.ErrInvalidCredential):
						logger.Warn("Credential verification failed", zap.String("client_ip", addr), zap.Error(err))
					}
				}
			}
		}

		decision := controller.Admit(key, tier, time.Now())
		m.ObserveAdmission(tier.Name, decision.Allowed)
		if !decision.Allowed {
			if err := grpc.SetHeader(ctx, metadata.Pairs("retry-after", strconv.Itoa(decision.RetryAfter))); err != nil {
				logger.Debug("Failed to set response header", zap.Error(err))
			}
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry after %ds", decision.RetryAfter)
		}
		return handler(ctx, req)
	}
}

// TrustedSubnetInterceptor создаёт интерцептор для проверки доверенной подсети.
// Ping доступен всем.
func TrustedSubnetInterceptor(trustedSubnet string, logger *zap.Logger) grpc.UnaryServerInterceptor {
	_, subnet, parseErr := net.ParseCIDR(trustedSubnet)
	if trustedSubnet != "" && parseErr != nil {
		logger.Error("Invalid trusted subnet", zap.String("subnet", trustedSubnet), zap.Error(parseErr))
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod == proto.PingFullMethod {
			return handler(ctx, req)
		}

		if trustedSubnet == "" {
			return nil, status.Error(codes.PermissionDenied, "trusted subnet not configured")
		}
		if parseErr != nil {
			return nil, status.Error(codes.Internal, "invalid trusted subnet configuration")
		}

		clientIP := peerAddr(ctx)
		ip := net.ParseIP(clientIP)
		if ip == nil || !subnet.Contains(ip) {
			logger.Warn("Access denied from untrusted IP", zap.String("ip", clientIP))
			return nil, status.Error(codes.PermissionDenied, "access denied")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor создаёт интерцептор для логирования gRPC запросов
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		logger.Info("gRPC request",
			zap.String("method", info.FullMethod),
			zap.String("client_ip", peerAddr(ctx)),
			zap.String("status_code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		return resp, err
	}
}
