package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/model"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher доставляет события outbox в Kafka.
type KafkaPublisher struct {
	client producer
	logger *zap.Logger
}

// NewKafkaClient создаёт клиент Kafka для указанных брокеров.
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	seeds := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			seeds = append(seeds, b)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic создаёт топик событий, если его ещё нет.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)

	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, detail := range resp {
		if detail.Err != nil && !strings.Contains(detail.Err.Error(), "already exists") {
			return fmt.Errorf("create topic %s: %w", detail.Topic, detail.Err)
		}
	}
	return nil
}

// NewKafkaPublisher создаёт издателя событий поверх клиента Kafka.
func NewKafkaPublisher(client *kgo.Client, logger *zap.Logger) *KafkaPublisher {
	return newPublisher(client, logger)
}

func newPublisher(client producer, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{client: client, logger: logger}
}

// Publish синхронно отправляет события; ошибка любой записи возвращается
// вызывающему, чтобы пачка осталась неотправленной в outbox.
func (p *KafkaPublisher) Publish(ctx context.Context, events []model.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		records = append(records, &kgo.Record{
			Topic: e.Topic,
			Key:   []byte(e.Key),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: HeaderEventType, Value: []byte(e.Type)},
			},
			Timestamp: e.CreatedAt,
		})
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce events: %w", err)
	}

	p.logger.Debug("events published", zap.Int("count", len(records)))
	return nil
}

// Close закрывает клиент Kafka.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
