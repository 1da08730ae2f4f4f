package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

// RoutingKeyAvailabilityChanged は残席が変わった開催枠の通知に使うルーティングキー
const RoutingKeyAvailabilityChanged = "schedule.availability.changed"

// AvailabilityChanged は残席変更の通知内容
type AvailabilityChanged struct {
	ScheduleID string    `json:"schedule_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AvailabilityPublisher は予約状況の変化を topic exchange に流す
// 予約処理のキャッシュ無効化と同じタイミングで呼ばれる
type AvailabilityPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

// NewAvailabilityPublisher は接続とチャネルを開き exchange を宣言する
func NewAvailabilityPublisher(url, exchange string) (*AvailabilityPublisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗しました: %w", err)
	}
	p, err := newPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) (*AvailabilityPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("exchange宣言に失敗しました: %w", err)
	}
	return &AvailabilityPublisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

// Invalidate は開催枠の空き状況が変わったことを通知する
func (p *AvailabilityPublisher) Invalidate(ctx context.Context, scheduleID string) error {
	body, err := json.Marshal(AvailabilityChanged{ScheduleID: scheduleID, OccurredAt: p.now().UTC()})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyAvailabilityChanged, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		logger.Warn("空き状況の通知に失敗しました", zap.String("schedule_id", scheduleID), zap.Error(err))
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *AvailabilityPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
