package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/telemetry"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

// DispatcherConfig 派送器設定
type DispatcherConfig struct {
	// Workers 同時呼叫 sink 的 goroutine 數量
	Workers int
	// QueueSize 輸送帶緩衝大小
	QueueSize int
	// EnqueueTimeout 輸送帶滿時 Dispatch 最多等多久，0 表示不等直接丟棄
	EnqueueTimeout time.Duration
	// Timeout 單次 Notify 的逾時，0 表示不限制
	Timeout time.Duration
}

// job 輸送帶上的一筆通知
type job struct {
	ctx          context.Context
	notification domain.Notification
}

// Dispatcher 非同步通知派送器
//
// Dispatch -> queue (輸送帶) -> worker run loop -> sink.Notify
//
// sink 的錯誤與 panic 都在 worker 內吃掉並記錄，不會回到轉帳流程。
// Stop 會先拒絕新的通知，再把輸送帶上剩下的通知送完。
type Dispatcher struct {
	sink   usecase.NotificationSink
	cfg    DispatcherConfig
	logger *zap.Logger

	queue chan job

	// mu 保護 stopped，Dispatch 持有讀鎖直到通知放上輸送帶
	mu      sync.RWMutex
	stopped bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDispatcher 建立派送器，呼叫 Start 之後才會開始送
func NewDispatcher(sink usecase.NotificationSink, cfg DispatcherConfig, logger *zap.Logger) (*Dispatcher, error) {
	if sink == nil {
		return nil, errors.New("notification sink is required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", cfg.QueueSize)
	}
	if cfg.EnqueueTimeout < 0 {
		return nil, fmt.Errorf("enqueue timeout must not be negative, got %s", cfg.EnqueueTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan job, cfg.QueueSize),
	}, nil
}

// Start 啟動 worker (非同步)
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		d.wg.Add(d.cfg.Workers)
		for range d.cfg.Workers {
			go d.run(ctx)
		}
	})
}

// Stop 停止接收新通知，送完輸送帶上剩下的通知後返回
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		// 等所有正在放入輸送帶的 Dispatch 完成
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		// 從未 Start 過的情況
		d.drain()
	})
}

// Dispatch 把通知放上輸送帶
// 輸送帶滿時最多等 EnqueueTimeout，逾時或 Stop 之後的通知會被丟棄並記錄，
// 所以卡住的 sink 不會拖慢轉帳
func (d *Dispatcher) Dispatch(ctx context.Context, notifications ...domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// 通知的生命週期不跟著呼叫者的 request
	ctx = context.WithoutCancel(ctx)
	for _, n := range notifications {
		if d.stopped {
			d.drop(n, "dispatcher stopped, notification dropped")
			continue
		}
		if !d.enqueue(job{ctx: ctx, notification: n}) {
			d.drop(n, "notification queue full, notification dropped")
			continue
		}
		telemetry.NotificationQueueDepth.Inc()
	}
}

// enqueue 放上輸送帶，滿了就在 EnqueueTimeout 內等待空位
func (d *Dispatcher) enqueue(j job) bool {
	select {
	case d.queue <- j:
		return true
	default:
	}
	if d.cfg.EnqueueTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case d.queue <- j:
		return true
	case <-timer.C:
		return false
	}
}

func (d *Dispatcher) drop(n domain.Notification, msg string) {
	telemetry.NotificationsTotal.WithLabelValues(telemetry.NotificationDropped).Inc()
	d.logger.Warn(msg,
		zap.Stringer("transfer_id", n.TransferID),
		zap.String("account_id", n.Account.ID),
	)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的通知處理完
			d.drain()
			return
		case j := <-d.queue:
			d.deliver(j)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			d.deliver(j)
		default:
			return
		}
	}
}

// deliver 呼叫 sink，錯誤只記錄不回傳
func (d *Dispatcher) deliver(j job) {
	telemetry.NotificationQueueDepth.Dec()
	n := j.notification

	defer func() {
		if r := recover(); r != nil {
			telemetry.NotificationsTotal.WithLabelValues(telemetry.NotificationFailed).Inc()
			d.logger.Error("notification sink panicked",
				zap.Stringer("transfer_id", n.TransferID),
				zap.String("account_id", n.Account.ID),
				zap.Any("panic", r),
			)
		}
	}()

	ctx := j.ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	if err := d.sink.Notify(ctx, n); err != nil {
		telemetry.NotificationsTotal.WithLabelValues(telemetry.NotificationFailed).Inc()
		d.logger.Warn("failed to deliver notification",
			zap.Stringer("transfer_id", n.TransferID),
			zap.String("account_id", n.Account.ID),
			zap.Error(err),
		)
		return
	}
	telemetry.NotificationsTotal.WithLabelValues(telemetry.NotificationDelivered).Inc()
}

var _ usecase.Notifier = (*Dispatcher)(nil)
