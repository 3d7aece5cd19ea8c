package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/pkg/contracts/events"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// MessageWriter é o subconjunto do kafka.Writer usado pelo publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica um SnapshotStored por upsert no tópico de snapshots.
// A chave é o snapshot_id, então todas as versões de um snapshot caem na mesma partição.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(w MessageWriter, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish serializa o evento em JSON e envia para o tópico configurado
func (p *KafkaPublisher) Publish(ctx context.Context, s snapshots.OddsSnapshot, existed bool) error {
	evt := events.NewSnapshotStored(s, existed)
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(s.SnapshotID),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s to %s: %w", s.SnapshotID, p.topic, err)
	}

	p.log.Debug("published snapshot event",
		zap.String("topic", p.topic),
		zap.String("event_id", evt.EventID),
		zap.String("snapshot_id", s.SnapshotID),
	)
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// EnsureTopic cria o tópico via controller do cluster quando ele ainda não existe.
// Pensado para ambientes local/dev com um único broker.
func EnsureTopic(ctx context.Context, brokers []string, topic string, log *zap.Logger) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka brokers not provided")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("connect to kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get kafka controller: %w", err)
	}

	controllerAddr := fmt.Sprintf("%s:%d", controller.Host, controller.Port)
	cconn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}
	if err := cconn.CreateTopics(cfg); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	log.Info("kafka topic created", zap.String("topic", topic))
	return nil
}
