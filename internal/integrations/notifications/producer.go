package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Logger интерфейс логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Event уведомление для доставки пользователю
// Канал доставки выбирает notification-service на своей стороне
type Event struct {
	RecipientID int64     `json:"recipient_id"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	ActionURL   string    `json:"action_url,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Producer публикует уведомления в Kafka
// При пустом списке брокеров работает как no-op: доставка уведомлений
// не должна блокировать бизнес-операции
type Producer struct {
	writer *kafka.Writer
	log    Logger
}

// NewProducer создает продюсер уведомлений
func NewProducer(brokers []string, topic string, log Logger) *Producer {
	if len(brokers) == 0 {
		log.Warn("notifications producer disabled: no kafka brokers configured")
		return &Producer{log: log}
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})

	return &Producer{writer: writer, log: log}
}

// Notify отправляет уведомление получателю
// Ключ сообщения - recipient_id, чтобы сохранить порядок уведомлений
// в рамках одного пользователя
func (p *Producer) Notify(ctx context.Context, recipientID int64, subject, message, actionURL string) error {
	if p.writer == nil {
		return nil
	}

	event := Event{
		RecipientID: recipientID,
		Subject:     subject,
		Message:     message,
		ActionURL:   actionURL,
		OccurredAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event: %v", ErrInternal, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(recipientID, 10)),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write message: %v", ErrInternal, err)
	}

	return nil
}

// Close закрывает соединение с Kafka
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
