package adminpb

import (
	"context"

	"google.golang.org/grpc"
)

// AdminServiceServer is the service implementation contract, what
// protoc-gen-go-grpc would otherwise generate from the .proto in
// messages.go's doc comment.
type AdminServiceServer interface {
	GetAvailableVersions(context.Context, *GetAvailableVersionsRequest) (*GetAvailableVersionsResponse, error)
	CheckCompatibility(context.Context, *CheckCompatibilityRequest) (*CheckCompatibilityResponse, error)
	GetMigrationPath(context.Context, *GetMigrationPathRequest) (*GetMigrationPathResponse, error)
	GetSagaStatus(context.Context, *GetSagaStatusRequest) (*GetSagaStatusResponse, error)
}

// AdminServiceClient is the generated-style client stub.
type AdminServiceClient interface {
	GetAvailableVersions(ctx context.Context, in *GetAvailableVersionsRequest, opts ...grpc.CallOption) (*GetAvailableVersionsResponse, error)
	CheckCompatibility(ctx context.Context, in *CheckCompatibilityRequest, opts ...grpc.CallOption) (*CheckCompatibilityResponse, error)
	GetMigrationPath(ctx context.Context, in *GetMigrationPathRequest, opts ...grpc.CallOption) (*GetMigrationPathResponse, error)
	GetSagaStatus(ctx context.Context, in *GetSagaStatusRequest, opts ...grpc.CallOption) (*GetSagaStatusResponse, error)
}

type adminServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminServiceClient wraps an established grpc.ClientConnInterface.
func NewAdminServiceClient(cc grpc.ClientConnInterface) AdminServiceClient {
	return &adminServiceClient{cc}
}

func (c *adminServiceClient) GetAvailableVersions(ctx context.Context, in *GetAvailableVersionsRequest, opts ...grpc.CallOption) (*GetAvailableVersionsResponse, error) {
	out := new(GetAvailableVersionsResponse)
	if err := c.cc.Invoke(ctx, "/grainfsm.admin.v1.AdminService/GetAvailableVersions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) CheckCompatibility(ctx context.Context, in *CheckCompatibilityRequest, opts ...grpc.CallOption) (*CheckCompatibilityResponse, error) {
	out := new(CheckCompatibilityResponse)
	if err := c.cc.Invoke(ctx, "/grainfsm.admin.v1.AdminService/CheckCompatibility", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) GetMigrationPath(ctx context.Context, in *GetMigrationPathRequest, opts ...grpc.CallOption) (*GetMigrationPathResponse, error) {
	out := new(GetMigrationPathResponse)
	if err := c.cc.Invoke(ctx, "/grainfsm.admin.v1.AdminService/GetMigrationPath", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) GetSagaStatus(ctx context.Context, in *GetSagaStatusRequest, opts ...grpc.CallOption) (*GetSagaStatusResponse, error) {
	out := new(GetSagaStatusResponse)
	if err := c.cc.Invoke(ctx, "/grainfsm.admin.v1.AdminService/GetSagaStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _AdminService_GetAvailableVersions_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAvailableVersionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).GetAvailableVersions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grainfsm.admin.v1.AdminService/GetAvailableVersions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServiceServer).GetAvailableVersions(ctx, req.(*GetAvailableVersionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_CheckCompatibility_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckCompatibilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).CheckCompatibility(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grainfsm.admin.v1.AdminService/CheckCompatibility"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServiceServer).CheckCompatibility(ctx, req.(*CheckCompatibilityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_GetMigrationPath_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetMigrationPathRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).GetMigrationPath(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grainfsm.admin.v1.AdminService/GetMigrationPath"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServiceServer).GetMigrationPath(ctx, req.(*GetMigrationPathRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_GetSagaStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSagaStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).GetSagaStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grainfsm.admin.v1.AdminService/GetSagaStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServiceServer).GetSagaStatus(ctx, req.(*GetSagaStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AdminService_ServiceDesc is the grpc.ServiceDesc for AdminService.
var AdminService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "grainfsm.admin.v1.AdminService",
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailableVersions", Handler: _AdminService_GetAvailableVersions_Handler},
		{MethodName: "CheckCompatibility", Handler: _AdminService_CheckCompatibility_Handler},
		{MethodName: "GetMigrationPath", Handler: _AdminService_GetMigrationPath_Handler},
		{MethodName: "GetSagaStatus", Handler: _AdminService_GetSagaStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grainfsm/admin/v1/admin.proto",
}

// RegisterAdminServiceServer registers srv on s.
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&AdminService_ServiceDesc, srv)
}
