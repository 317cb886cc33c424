// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protection

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthorityServiceName is the gRPC service implemented by region authorities.
const AuthorityServiceName = "coresystem.protection.v1.RegionAuthority"

const (
	methodCreateRegion = "CreateRegion"
	methodRemoveRegion = "RemoveRegion"
	methodQueryRegions = "QueryRegions"
)

func authorityMethod(name string) string {
	return "/" + AuthorityServiceName + "/" + name
}

// AuthorityServer is implemented by a region authority. Messages are
// google.protobuf.Struct values:
//
//	CreateRegion  {id, world, min{x,y,z}, max{x,y,z}, owners[], priority, flags{}} -> {}
//	RemoveRegion  {id, world} -> {removed}
//	QueryRegions  {world, x, y, z} -> {regions[{id, owners[], priority, min, max}]}
type AuthorityServer interface {
	CreateRegion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveRegion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryRegions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAuthorityServer registers srv on s.
func RegisterAuthorityServer(s grpc.ServiceRegistrar, srv AuthorityServer) {
	s.RegisterService(&authorityServiceDesc, srv)
}

var authorityServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthorityServiceName,
	HandlerType: (*AuthorityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodCreateRegion, Handler: structHandler(methodCreateRegion, AuthorityServer.CreateRegion)},
		{MethodName: methodRemoveRegion, Handler: structHandler(methodRemoveRegion, AuthorityServer.RemoveRegion)},
		{MethodName: methodQueryRegions, Handler: structHandler(methodQueryRegions, AuthorityServer.QueryRegions)},
	},
	Streams: []grpc.StreamDesc{},
}

type structMethod func(AuthorityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(name string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthorityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: authorityMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthorityServer), ctx, req.(*structpb.Struct))
		})
	}
}
