package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "ledger.v1.LedgerService"

	createAccountMethod = "/" + ServiceName + "/CreateAccount"
	getAccountMethod    = "/" + ServiceName + "/GetAccount"
	transferMethod      = "/" + ServiceName + "/Transfer"
)

// LedgerServiceServer gRPC 服務端介面
type LedgerServiceServer interface {
	CreateAccount(ctx context.Context, req *CreateAccountRequest) (*AccountResponse, error)
	GetAccount(ctx context.Context, req *GetAccountRequest) (*AccountResponse, error)
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerServiceDesc 手寫的 service descriptor，訊息走 JSON codec
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAccount", Handler: createAccountHandler},
		{MethodName: "GetAccount", Handler: getAccountHandler},
		{MethodName: "Transfer", Handler: transferHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.json",
}

func createAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).CreateAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createAccountMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).CreateAccount(ctx, req.(*CreateAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).GetAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getAccountMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).GetAccount(ctx, req.(*GetAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transferHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TransferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).Transfer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: transferMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).Transfer(ctx, req.(*TransferRequest))
	}
	return interceptor(ctx, in, info, handler)
}
