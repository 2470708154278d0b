package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/internal/logging"
)

// EstimationServiceName is the fully-qualified gRPC service name.
const EstimationServiceName = "meshlink.v1.EstimationService"

const (
	estimateMethod     = "/" + EstimationServiceName + "/Estimate"
	listVariantsMethod = "/" + EstimationServiceName + "/ListVariants"
)

// EstimationServer is the server API for meshlink.v1.EstimationService.
// Requests and responses travel as google.protobuf.Struct carrying the JSON
// form of EstimateRequest, core.EstimationSummary and VariantsResponse.
type EstimationServer interface {
	Estimate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVariants(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// EstimationServiceDesc describes meshlink.v1.EstimationService for
// grpc.Server.RegisterService.
var EstimationServiceDesc = grpc.ServiceDesc{
	ServiceName: EstimationServiceName,
	HandlerType: (*EstimationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Estimate", Handler: estimateHandler},
		{MethodName: "ListVariants", Handler: listVariantsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meshlink/v1/estimation.proto",
}

// RegisterEstimationServer registers srv on s.
func RegisterEstimationServer(s grpc.ServiceRegistrar, srv EstimationServer) {
	s.RegisterService(&EstimationServiceDesc, srv)
}

func estimateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimationServer).Estimate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: estimateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimationServer).Estimate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listVariantsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimationServer).ListVariants(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listVariantsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimationServer).ListVariants(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCServer adapts a Service to EstimationServer.
type GRPCServer struct {
	svc *Service
	log logging.Logger
}

// NewGRPCServer constructs the gRPC adapter for svc.
func NewGRPCServer(svc *Service, log logging.Logger) *GRPCServer {
	if log == nil {
		log = logging.Noop()
	}
	return &GRPCServer{svc: svc, log: log}
}

// Estimate decodes the request struct, runs the estimation and encodes the
// summary.
func (g *GRPCServer) Estimate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EstimateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	summary, err := g.svc.Estimate(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(summary)
	if err != nil {
		logging.LoggerFromContext(ctx, g.log).Error(ctx, "encode summary failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}

// ListVariants returns the radio catalog.
func (g *GRPCServer) ListVariants(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(VariantsResponse{Variants: g.svc.Variants(ctx)})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// EstimationClient calls meshlink.v1.EstimationService.
type EstimationClient struct {
	cc grpc.ClientConnInterface
}

// NewEstimationClient wraps an established connection.
func NewEstimationClient(cc grpc.ClientConnInterface) *EstimationClient {
	return &EstimationClient{cc: cc}
}

// Estimate sends req and decodes the returned summary.
func (c *EstimationClient) Estimate(ctx context.Context, req EstimateRequest, opts ...grpc.CallOption) (*core.EstimationSummary, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, estimateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var summary core.EstimationSummary
	if err := fromStruct(out, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListVariants fetches the server's radio catalog.
func (c *EstimationClient) ListVariants(ctx context.Context, opts ...grpc.CallOption) (*VariantsResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listVariantsMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	var resp VariantsResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return st, nil
}

// fromStruct decodes a protobuf Struct into a JSON-tagged value.
func fromStruct(st *structpb.Struct, v any) error {
	if st == nil {
		st = new(structpb.Struct)
	}
	data, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}
