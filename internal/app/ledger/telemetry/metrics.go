package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 轉帳結果標籤
const (
	StatusSuccess             = "success"
	StatusInsufficientBalance = "insufficient_balance"
	StatusAccountNotFound     = "account_not_found"
	StatusFailed              = "failed"
)

// 通知結果標籤
const (
	NotificationDelivered = "delivered"
	NotificationFailed    = "failed"
	NotificationDropped   = "dropped"
)

var (
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Total number of transfer attempts",
		},
		[]string{"status"},
	)

	TransferDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_transfer_duration_seconds",
			Help:    "Time spent inside TransferService.Transfer",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Total number of notifications handled by the dispatcher",
		},
		[]string{"status"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_notification_queue_depth",
			Help: "Notifications waiting in the dispatcher queue",
		},
	)

	AccountCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_accounts",
			Help: "Number of accounts in the ledger",
		},
	)
)
