package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aulahub/console/config"
	"github.com/aulahub/console/pkg/metrics"
	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const serviceName = "console"

// Event types emitted on the console audit topic.
const (
	SubjectCreated   = "subject.created"
	SubjectUpdated   = "subject.updated"
	SubjectFinalized = "subject.finalized"
	DraftCancelled   = "draft.cancelled"
	ModuleCreated    = "module.created"
	ModuleUpdated    = "module.updated"
	ModuleDeleted    = "module.deleted"
)

// Event is the JSON schema consumers of the audit topic read.
type Event struct {
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	ModuleID  string    `json:"module_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits audit events. Publishing is best-effort: a broker failure
// is logged and counted, never propagated into the user's action.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logrus.Logger
}

// NewPublisher returns a kafka-backed publisher, or a no-op one when brokers
// are not configured.
func NewPublisher(cfg *config.Config, logger *logrus.Logger) Publisher {
	if cfg.Kafka.Brokers == "" || cfg.Kafka.Topic == "" {
		logger.Info("kafka publisher disabled (missing config)")
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w, topic: cfg.Kafka.Topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("event marshal failed")
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: payload,
	})
	if err != nil {
		metrics.KafkaMessagesTotal.WithLabelValues(serviceName, p.topic, "error").Inc()
		p.logger.WithError(err).WithField("type", event.Type).Error("event publish failed")
		return
	}
	metrics.KafkaMessagesTotal.WithLabelValues(serviceName, p.topic, "ok").Inc()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
