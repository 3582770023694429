package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"safestep/internal/intake/processor"
	"safestep/internal/queue"
)

// Header keys set on dead-lettered records.
const (
	HeaderReason    = "reason"
	HeaderMessageID = "message-id"
)

// ReasonCommitFailed is the dead-letter reason for accepted records whose
// batch write failed.
const ReasonCommitFailed = "commit failed"

// Client is the subset of *kgo.Client the consumer calls.
type Client interface {
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Handler processes one polled batch.
type Handler interface {
	Process(ctx context.Context, msgs []queue.Message) processor.Result
}

// Config names the topics and batch size.
type Config struct {
	Brokers   []string
	Topic     string
	Group     string
	DLQTopic  string
	BatchSize int
}

// Consumer polls the inbound topic, hands each batch to the processor and
// dead-letters what it could not accept. Offsets are committed only after
// the dead-letter produce succeeded, so a crash redelivers the batch.
type Consumer struct {
	client    Client
	handler   Handler
	dlqTopic  string
	batchSize int
	logger    *zap.Logger
}

func NewConsumer(client Client, handler Handler, cfg Config, logger *zap.Logger) *Consumer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Consumer{
		client:    client,
		handler:   handler,
		dlqTopic:  cfg.DLQTopic,
		batchSize: batchSize,
		logger:    logger,
	}
}

// NewClient builds a group consumer with manual offset commits.
func NewClient(cfg Config) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// Admin is the subset of *kadm.Client used to prepare topics.
type Admin interface {
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
}

// EnsureTopics creates the topics with broker defaults, ignoring ones that
// already exist.
func EnsureTopics(ctx context.Context, admin Admin, topics ...string) error {
	resp, err := admin.CreateTopics(ctx, -1, -1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for topic, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled or the client is closed. It returns an
// error only when a batch could not be dead-lettered or committed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollRecords(ctx, c.batchSize)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("fetch error",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err),
			)
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}
		if err := c.HandleRecords(ctx, records); err != nil {
			return err
		}
	}
}

// HandleRecords processes one batch, dead-letters rejected records (and every
// accepted record when the batch write failed) and commits the offsets.
func (c *Consumer) HandleRecords(ctx context.Context, records []*kgo.Record) error {
	byID := make(map[string]*kgo.Record, len(records))
	msgs := make([]queue.Message, 0, len(records))
	for _, r := range records {
		id := MessageID(r)
		byID[id] = r
		msgs = append(msgs, queue.Message{ID: id, Body: r.Value})
	}

	res := c.handler.Process(ctx, msgs)

	var dead []*kgo.Record
	for _, rej := range res.Rejected {
		dead = append(dead, c.deadLetter(byID[rej.Message.ID], rej.Message.ID, rej.Reason.Error()))
	}
	if !res.Committed {
		c.logger.Error("batch not committed, dead-lettering accepted records",
			zap.Int("accepted", len(res.Accepted)),
		)
		for _, m := range res.Accepted {
			dead = append(dead, c.deadLetter(byID[m.ID], m.ID, ReasonCommitFailed))
		}
	}

	if len(dead) > 0 {
		if err := c.client.ProduceSync(ctx, dead...).FirstErr(); err != nil {
			return fmt.Errorf("produce to dead-letter topic %s: %w", c.dlqTopic, err)
		}
		c.logger.Info("records dead-lettered", zap.Int("count", len(dead)), zap.String("topic", c.dlqTopic))
	}

	if err := c.client.CommitRecords(ctx, records...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}

func (c *Consumer) deadLetter(src *kgo.Record, id, reason string) *kgo.Record {
	return &kgo.Record{
		Topic: c.dlqTopic,
		Key:   src.Key,
		Value: src.Value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderReason, Value: []byte(reason)},
			{Key: HeaderMessageID, Value: []byte(id)},
		},
	}
}

// MessageID renders the record position as topic/partition/offset.
func MessageID(r *kgo.Record) string {
	return fmt.Sprintf("%s/%d/%d", r.Topic, r.Partition, r.Offset)
}
