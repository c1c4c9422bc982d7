package grpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

var _ LedgerServiceServer = (*Server)(nil)

// Server 把 gRPC 請求轉給 TransferService，錯誤只在這層轉成 status code
type Server struct {
	svc *usecase.TransferService
}

func NewServer(svc *usecase.TransferService) *Server {
	return &Server{
		svc: svc,
	}
}

func (s *Server) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*AccountResponse, error) {
	if req.AccountID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id is required")
	}
	if req.Balance == nil {
		return nil, status.Error(codes.InvalidArgument, "balance is required")
	}

	account, err := s.svc.CreateAccount(ctx, req.AccountID, *req.Balance)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *Server) GetAccount(ctx context.Context, req *GetAccountRequest) (*AccountResponse, error) {
	account, err := s.svc.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *Server) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	if req.Amount == nil {
		return nil, status.Error(codes.InvalidArgument, "amount is required")
	}

	result, err := s.svc.Transfer(ctx, req.FromAccountID, req.ToAccountID, *req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{
		TransferID:  result.TransferID.String(),
		From:        *toAccountResponse(result.From),
		To:          *toAccountResponse(result.To),
		Amount:      result.Amount,
		CompletedAt: result.CreatedAt,
	}, nil
}

// UnaryLoggingInterceptor 每個 unary 呼叫記一行 log
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Stringer("code", code),
			zap.Duration("latency", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("grpc request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("grpc request", fields...)
		}
		return resp, err
	}
}

func toAccountResponse(account domain.Account) *AccountResponse {
	return &AccountResponse{
		AccountID: account.ID,
		Balance:   account.Balance,
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateAccount):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidAccount):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
