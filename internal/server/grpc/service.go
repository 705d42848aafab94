package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SessionsServiceName is the fully qualified gRPC service name.
const SessionsServiceName = "jwtkeeper.v1.Sessions"

const (
	MethodValidateToken    = "/" + SessionsServiceName + "/ValidateToken"
	MethodListActiveTokens = "/" + SessionsServiceName + "/ListActiveTokens"
	MethodRevokeToken      = "/" + SessionsServiceName + "/RevokeToken"
	MethodRevokeAllTokens  = "/" + SessionsServiceName + "/RevokeAllTokens"
)

// SessionsServer is the token service exposed to other backends. Messages
// are well-known protobuf types so no generated code is needed.
type SessionsServer interface {
	// ValidateToken takes a raw JWT and returns its owner and jti when the
	// token is allowlisted.
	ValidateToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListActiveTokens(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RevokeToken(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	RevokeAllTokens(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

func RegisterSessionsServer(s grpc.ServiceRegistrar, srv SessionsServer) {
	s.RegisterService(&sessionsServiceDesc, srv)
}

var sessionsServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionsServiceName,
	HandlerType: (*SessionsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ValidateToken", Handler: validateTokenHandler},
		{MethodName: "ListActiveTokens", Handler: listActiveTokensHandler},
		{MethodName: "RevokeToken", Handler: revokeTokenHandler},
		{MethodName: "RevokeAllTokens", Handler: revokeAllTokensHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodValidateToken}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionsServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	})
}

func listActiveTokensHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).ListActiveTokens(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListActiveTokens}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionsServer).ListActiveTokens(ctx, req.(*emptypb.Empty))
	})
}

func revokeTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).RevokeToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRevokeToken}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionsServer).RevokeToken(ctx, req.(*wrapperspb.StringValue))
	})
}

func revokeAllTokensHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).RevokeAllTokens(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRevokeAllTokens}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionsServer).RevokeAllTokens(ctx, req.(*emptypb.Empty))
	})
}
