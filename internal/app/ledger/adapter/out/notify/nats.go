package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

// DefaultSubject 預設的通知 subject
const DefaultSubject = "ledger.notifications"

// Publisher 是 *nats.Conn 中 NATSSink 用到的部分
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink 把通知以 JSON 發佈到 NATS subject
type NATSSink struct {
	publisher Publisher
	subject   string
}

func NewNATSSink(publisher Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{
		publisher: publisher,
		subject:   subject,
	}
}

func (s *NATSSink) Notify(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(NewRecord(n))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := s.publisher.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", s.subject, err)
	}
	return nil
}

// ConnectNATS 建立 NATS 連線
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("mem-transfer-ledger"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

var (
	_ usecase.NotificationSink = (*NATSSink)(nil)
	_ Publisher                = (*nats.Conn)(nil)
)
