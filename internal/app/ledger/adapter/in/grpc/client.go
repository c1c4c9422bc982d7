package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// LedgerClient gRPC 客戶端，所有呼叫都會帶上 JSON content-subtype
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

func (c *LedgerClient) CreateAccount(ctx context.Context, req *CreateAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	if err := c.invoke(ctx, createAccountMethod, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) GetAccount(ctx context.Context, req *GetAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	if err := c.invoke(ctx, getAccountMethod, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) Transfer(ctx context.Context, req *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	out := new(TransferResponse)
	if err := c.invoke(ctx, transferMethod, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	callOpts := make([]grpc.CallOption, 0, len(opts)+1)
	callOpts = append(callOpts, grpc.CallContentSubtype(CodecName))
	callOpts = append(callOpts, opts...)
	return c.cc.Invoke(ctx, method, in, out, callOpts...)
}
