package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/in/grpc"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/grpc"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/logger"
)

func main() {
	target := flag.String("target", "localhost:50051", "ledger grpc address")
	accounts := flag.Int("accounts", 10, "number of accounts to create")
	initial := flag.String("balance", "1000", "initial balance of each account")
	totalCount := flag.Int("n", 100000, "number of transfers")
	concurrency := flag.Int("c", 100, "concurrent transfers")
	amount := flag.String("amount", "7.5", "amount of each transfer")
	timeout := flag.Duration("timeout", 120*time.Second, "overall timeout")
	keepaliveInterval := flag.Duration("keepalive", 10*time.Second, "grpc keepalive ping interval")
	verbose := flag.Bool("v", false, "log every failed transfer")
	flag.Parse()

	log, level, err := logger.New(logger.Config{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	if *verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	balance := decimal.RequireFromString(*initial)
	transferAmount := decimal.RequireFromString(*amount)

	pool := grpc.NewPool(grpc.WithKeepalive(*keepaliveInterval, time.Second))
	defer pool.Close()
	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Fatal("did not connect", zap.Error(err))
	}
	c := grpc_adapter.NewLedgerClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 1. 建立本次壓測專用的帳戶
	ids := make([]string, *accounts)
	for i := range ids {
		ids[i] = uuid.Must(uuid.NewV7()).String()
		if _, err := c.CreateAccount(ctx, &grpc_adapter.CreateAccountRequest{AccountID: ids[i], Balance: &balance}); err != nil {
			log.Fatal("failed to create account", zap.String("account_id", ids[i]), zap.Error(err))
		}
	}
	expected := balance.Mul(decimal.NewFromInt(int64(len(ids))))

	// 2. 併發轉帳
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int64
		insufficient atomic.Int64
		failed       atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := range *totalCount {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			from := ids[idx%len(ids)]
			to := ids[(idx*7+1)%len(ids)]
			_, err := c.Transfer(ctx, &grpc_adapter.TransferRequest{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        &transferAmount,
			})
			switch status.Code(err) {
			case codes.OK:
				succeeded.Add(1)
			case codes.FailedPrecondition:
				insufficient.Add(1)
			default:
				if failed.Add(1) <= 10 {
					log.Warn("transfer failed", zap.Int("idx", idx), zap.Error(err))
				} else {
					log.Debug("transfer failed", zap.Int("idx", idx), zap.Error(err))
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	// 3. 檢查總額守恆與非負
	total := decimal.Zero
	for _, id := range ids {
		account, err := c.GetAccount(ctx, &grpc_adapter.GetAccountRequest{AccountID: id})
		if err != nil {
			log.Fatal("failed to read account", zap.String("account_id", id), zap.Error(err))
		}
		if account.Balance.IsNegative() {
			log.Error("negative balance", zap.String("account_id", id), zap.Stringer("balance", account.Balance))
		}
		total = total.Add(account.Balance)
	}

	log.Info("load test completed",
		zap.Int("requests", *totalCount),
		zap.Duration("elapsed", elapsed),
		zap.Float64("tps", float64(*totalCount)/elapsed.Seconds()),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("insufficient_balance", insufficient.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Stringer("expected_total", expected),
		zap.Stringer("actual_total", total),
	)
	if !total.Equal(expected) {
		log.Error("balance not conserved")
		_ = log.Sync()
		os.Exit(1)
	}
}
