package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/memory"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

func newTestClient(t *testing.T) *LedgerClient {
	t.Helper()

	store, err := memory.NewAccountStore()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	svc := usecase.NewTransferService(store, nil, logger)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryLoggingInterceptor(logger)))
	RegisterLedgerServiceServer(s, NewServer(svc))
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewLedgerClient(conn)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestServer_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	created, err := client.CreateAccount(ctx, &CreateAccountRequest{AccountID: "A", Balance: decimalPtr("1000")})
	require.NoError(t, err)
	assert.Equal(t, "A", created.AccountID)

	got, err := client.GetAccount(ctx, &GetAccountRequest{AccountID: "A"})
	require.NoError(t, err)
	assert.Equal(t, "1000", got.Balance.String())

	_, err = client.CreateAccount(ctx, &CreateAccountRequest{AccountID: "A", Balance: decimalPtr("1")})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = client.GetAccount(ctx, &GetAccountRequest{AccountID: "nonexistent"})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "account id nonexistent is not found", status.Convert(err).Message())
}

func TestServer_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	tests := []struct {
		name string
		req  *CreateAccountRequest
	}{
		{name: "empty id", req: &CreateAccountRequest{Balance: decimalPtr("1")}},
		{name: "missing balance", req: &CreateAccountRequest{AccountID: "A"}},
		{name: "negative balance", req: &CreateAccountRequest{AccountID: "A", Balance: decimalPtr("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateAccount(ctx, tt.req)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestServer_Transfer(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	for _, id := range []string{"A", "B"} {
		_, err := client.CreateAccount(ctx, &CreateAccountRequest{AccountID: id, Balance: decimalPtr("1000")})
		require.NoError(t, err)
	}

	resp, err := client.Transfer(ctx, &TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: decimalPtr("100")})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TransferID)
	assert.Equal(t, "900", resp.From.Balance.String())
	assert.Equal(t, "1100", resp.To.Balance.String())

	tests := []struct {
		name string
		req  *TransferRequest
		code codes.Code
	}{
		{name: "insufficient", req: &TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: decimalPtr("3000")}, code: codes.FailedPrecondition},
		{name: "negative", req: &TransferRequest{FromAccountID: "A", ToAccountID: "B", Amount: decimalPtr("-1")}, code: codes.FailedPrecondition},
		{name: "missing amount", req: &TransferRequest{FromAccountID: "A", ToAccountID: "B"}, code: codes.InvalidArgument},
		{name: "unknown receiver", req: &TransferRequest{FromAccountID: "A", ToAccountID: "nonexistent", Amount: decimalPtr("1")}, code: codes.NotFound},
		{name: "empty sender", req: &TransferRequest{ToAccountID: "B", Amount: decimalPtr("1")}, code: codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Transfer(ctx, tt.req)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	got, err := client.GetAccount(ctx, &GetAccountRequest{AccountID: "A"})
	require.NoError(t, err)
	assert.Equal(t, "900", got.Balance.String())
}
