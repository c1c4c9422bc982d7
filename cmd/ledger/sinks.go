package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/notify"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/config"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/journal"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/mysql"
)

// buildSinks 依設定組出通知 sink
// 回傳的 closers 要在 dispatcher Stop 之後才呼叫
func buildSinks(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (usecase.NotificationSink, []func() error, error) {
	var (
		sinks   notify.MultiSink
		closers []func() error
	)
	fail := func(err error) (usecase.NotificationSink, []func() error, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, err
	}

	if cfg.Log {
		sinks = append(sinks, notify.NewLogSink(logger.Named("notification")))
	}

	if cfg.Journal.Enabled {
		var opts []journal.Option
		if cfg.Journal.Sync {
			opts = append(opts, journal.WithSync())
		}
		j, err := journal.Open(cfg.Journal.Path, opts...)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error {
			// 非每筆 fsync 時，關閉前補一次
			return errors.Join(j.Sync(), j.Close())
		})
		sinks = append(sinks, notify.NewJournalSink(j))
		logger.Info("notification journal enabled", zap.String("path", cfg.Journal.Path))
	}

	if cfg.NATS.Enabled {
		nc, err := notify.ConnectNATS(cfg.NATS.URL, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error {
			return nc.Drain()
		})
		sinks = append(sinks, notify.NewNATSSink(nc, cfg.NATS.Subject))
		logger.Info("notification nats enabled",
			zap.String("url", cfg.NATS.URL),
			zap.String("subject", cfg.NATS.Subject),
		)
	}

	if cfg.MySQL.Enabled {
		client, err := mysql.NewClient(cfg.MySQL.Config, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		sink := notify.NewMySQLSink(client)
		if err := sink.Migrate(ctx); err != nil {
			return fail(fmt.Errorf("failed to migrate notifications table: %w", err))
		}
		sinks = append(sinks, sink)
		logger.Info("notification mysql enabled", zap.String("host", cfg.MySQL.Host))
	}

	if len(sinks) == 1 {
		return sinks[0], closers, nil
	}
	return sinks, closers, nil
}
