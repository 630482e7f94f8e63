package events

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// TopicRequestChanges carries one message per record-level change, keyed
// by record id.
const TopicRequestChanges = "medication.request-changes"

// Admin manages topic lifecycle.
type Admin struct {
	client *kadm.Client
	logger *zap.Logger
}

func NewAdmin(brokers []string, logger *zap.Logger) (*Admin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}
	return &Admin{client: kadm.NewClient(client), logger: logger}, nil
}

// EnsureTopics creates the change topic if it does not exist.
func (a *Admin) EnsureTopics(ctx context.Context) error {
	ptr := func(s string) *string { return &s }
	configs := map[string]*string{
		"retention.ms":     ptr("604800000"), // 7 days
		"cleanup.policy":   ptr("delete"),
		"compression.type": ptr("lz4"),
	}

	resp, err := a.client.CreateTopics(ctx, 3, 1, configs, TopicRequestChanges)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", TopicRequestChanges, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			if r.Err.Error() == "TOPIC_ALREADY_EXISTS" {
				a.logger.Info("topic already exists", zap.String("topic", r.Topic))
				continue
			}
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
		a.logger.Info("topic created", zap.String("topic", r.Topic))
	}
	return nil
}

func (a *Admin) Close() {
	a.client.Close()
}
