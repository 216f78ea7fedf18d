package nodegrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ledgertx/wire"
)

// Full method names of the node RPCs this package speaks.
const (
	MethodCryptoTransfer         = "/proto.CryptoService/cryptoTransfer"
	MethodGetTransactionReceipts = "/proto.CryptoService/getTransactionReceipts"
	MethodConsensusSubmitMessage = "/proto.ConsensusService/submitMessage"
	MethodFileAppendContent      = "/proto.FileService/appendContent"
	MethodScheduleCreateSchedule = "/proto.ScheduleService/createSchedule"
	MethodUtilPrng               = "/proto.UtilService/prng"
)

// NodeServer is the server API shared by every node service. Transaction
// RPCs all take a Transaction and differ only in method name.
type NodeServer interface {
	SubmitTransaction(ctx context.Context, method string, tx *wire.Transaction) (*wire.TransactionResponse, error)
	GetTransactionReceipts(ctx context.Context, q *wire.Query) (*wire.Response, error)
}

// UnimplementedNodeServer can be embedded to have forward compatible implementations.
type UnimplementedNodeServer struct{}

func (UnimplementedNodeServer) SubmitTransaction(_ context.Context, method string, _ *wire.Transaction) (*wire.TransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}
func (UnimplementedNodeServer) GetTransactionReceipts(context.Context, *wire.Query) (*wire.Response, error) {
	return nil, status.Error(codes.Unimplemented, "method getTransactionReceipts not implemented")
}

// NewServer returns a gRPC server that decodes with Codec. Node services
// must be registered on a server built this way.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	return grpc.NewServer(append([]grpc.ServerOption{grpc.ForceServerCodec(Codec{})}, opts...)...)
}

// RegisterNodeServer registers every node service on s.
func RegisterNodeServer(s grpc.ServiceRegistrar, srv NodeServer) {
	for i := range ServiceDescs {
		s.RegisterService(&ServiceDescs[i], srv)
	}
}

// handlerFunc is the shape grpc.MethodDesc expects for a unary handler.
type handlerFunc = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func transactionHandler(method string) handlerFunc {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wire.Transaction)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(NodeServer).SubmitTransaction(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.(NodeServer).SubmitTransaction(ctx, method, req.(*wire.Transaction))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _CryptoService_GetTransactionReceipts_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.Query)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServer).GetTransactionReceipts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetTransactionReceipts}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServer).GetTransactionReceipts(ctx, req.(*wire.Query))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDescs describes the node services, one per protobuf service.
var ServiceDescs = []grpc.ServiceDesc{
	{
		ServiceName: "proto.CryptoService",
		HandlerType: (*NodeServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "cryptoTransfer", Handler: transactionHandler(MethodCryptoTransfer)},
			{MethodName: "getTransactionReceipts", Handler: _CryptoService_GetTransactionReceipts_Handler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "crypto_service.proto",
	},
	{
		ServiceName: "proto.ConsensusService",
		HandlerType: (*NodeServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "submitMessage", Handler: transactionHandler(MethodConsensusSubmitMessage)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "consensus_service.proto",
	},
	{
		ServiceName: "proto.FileService",
		HandlerType: (*NodeServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "appendContent", Handler: transactionHandler(MethodFileAppendContent)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "file_service.proto",
	},
	{
		ServiceName: "proto.ScheduleService",
		HandlerType: (*NodeServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "createSchedule", Handler: transactionHandler(MethodScheduleCreateSchedule)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schedule_service.proto",
	},
	{
		ServiceName: "proto.UtilService",
		HandlerType: (*NodeServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "prng", Handler: transactionHandler(MethodUtilPrng)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "util_service.proto",
	},
}
