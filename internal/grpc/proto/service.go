package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Полные имена методов сервиса
const (
	ServiceName          = "linkpulse.v1.Analytics"
	GetStatsFullMethod   = "/" + ServiceName + "/GetStats"
	ListClicksFullMethod = "/" + ServiceName + "/ListClicks"
	PingFullMethod       = "/" + ServiceName + "/Ping"
)

// AnalyticsServer представляет интерфейс gRPC сервиса
type AnalyticsServer interface {
	GetStats(ctx context.Context, req *GetStatsRequest) (*GetStatsResponse, error)
	ListClicks(ctx context.Context, req *ListClicksRequest) (*ListClicksResponse, error)
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
}

// UnimplementedAnalyticsServer отвечает codes.Unimplemented на все методы
type UnimplementedAnalyticsServer struct{}

// GetStats не реализован
func (UnimplementedAnalyticsServer) GetStats(context.Context, *GetStatsRequest) (*GetStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStats not implemented")
}

// ListClicks не реализован
func (UnimplementedAnalyticsServer) ListClicks(context.Context, *ListClicksRequest) (*ListClicksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListClicks not implemented")
}

// Ping не реализован
func (UnimplementedAnalyticsServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

// RegisterAnalyticsServer регистрирует реализацию сервиса в gRPC сервере
func RegisterAnalyticsServer(s grpc.ServiceRegistrar, srv AnalyticsServer) {
	s.RegisterService(&analyticsServiceDesc, srv)
}

var analyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStats", Handler: getStatsHandler},
		{MethodName: "ListClicks", Handler: listClicksHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linkpulse/v1/analytics",
}

func getStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatsFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnalyticsServer).GetStats(ctx, req.(*GetStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listClicksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListClicksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).ListClicks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListClicksFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnalyticsServer).ListClicks(ctx, req.(*ListClicksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PingFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnalyticsServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyticsClient - клиент gRPC сервиса аналитики
type AnalyticsClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyticsClient создаёт клиента поверх соединения cc
func NewAnalyticsClient(cc grpc.ClientConnInterface) *AnalyticsClient {
	return &AnalyticsClient{cc: cc}
}

// GetStats запрашивает сводку по ссылке
func (c *AnalyticsClient) GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*GetStatsResponse, error) {
	out := new(GetStatsResponse)
	if err := c.cc.Invoke(ctx, GetStatsFullMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListClicks запрашивает переходы по ссылке
func (c *AnalyticsClient) ListClicks(ctx context.Context, in *ListClicksRequest, opts ...grpc.CallOption) (*ListClicksResponse, error) {
	out := new(ListClicksResponse)
	if err := c.cc.Invoke(ctx, ListClicksFullMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping проверяет состояние сервиса
func (c *AnalyticsClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.cc.Invoke(ctx, PingFullMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
