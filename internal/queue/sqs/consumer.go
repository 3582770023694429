package sqs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"safestep/internal/intake/processor"
	"safestep/internal/queue"
)

// maxMessages is the ReceiveMessage and DeleteMessageBatch per-call limit.
const maxMessages = 10

// API is the subset of the SQS client the consumer calls.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// Handler processes one received batch.
type Handler interface {
	Process(ctx context.Context, msgs []queue.Message) processor.Result
}

// Consumer long-polls a queue and deletes the messages the processor
// accepted. Rejected messages, and every message of a batch whose write
// failed, stay on the queue for its redrive policy.
type Consumer struct {
	client    API
	handler   Handler
	queueURL  string
	batchSize int32
	waitTime  time.Duration
	backoff   time.Duration
	logger    *zap.Logger
}

func NewConsumer(client API, handler Handler, queueURL string, batchSize int, waitTime time.Duration, logger *zap.Logger) *Consumer {
	if batchSize <= 0 || batchSize > maxMessages {
		batchSize = maxMessages
	}
	return &Consumer{
		client:    client,
		handler:   handler,
		queueURL:  queueURL,
		batchSize: int32(batchSize),
		waitTime:  waitTime,
		backoff:   time.Second,
		logger:    logger,
	}
}

// NewClient builds a client from shared SDK config. endpoint overrides the
// resolved endpoint when non-nil.
func NewClient(cfg awssdk.Config, endpoint *string) *sqs.Client {
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
}

// Run receives until ctx is cancelled. Receive failures are logged and
// retried after a pause.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            awssdk.String(c.queueURL),
			MaxNumberOfMessages: c.batchSize,
			WaitTimeSeconds:     int32(c.waitTime / time.Second),
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Warn("receive messages failed", zap.String("queue", c.queueURL), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		if len(out.Messages) == 0 {
			continue
		}
		c.HandleMessages(ctx, out.Messages)
	}
}

// HandleMessages processes one received batch and deletes what was accepted.
func (c *Consumer) HandleMessages(ctx context.Context, received []types.Message) {
	receipts := make(map[string]*string, len(received))
	msgs := make([]queue.Message, 0, len(received))
	for _, m := range received {
		id := awssdk.ToString(m.MessageId)
		receipts[id] = m.ReceiptHandle
		msgs = append(msgs, queue.Message{ID: id, Body: []byte(awssdk.ToString(m.Body))})
	}

	res := c.handler.Process(ctx, msgs)
	for _, rej := range res.Rejected {
		c.logger.Warn("message left for redrive",
			zap.String("message_id", rej.Message.ID),
			zap.Error(rej.Reason),
		)
	}
	if !res.Committed {
		c.logger.Error("batch not committed, leaving messages on the queue", zap.Int("accepted", len(res.Accepted)))
		return
	}
	if len(res.Accepted) == 0 {
		return
	}

	if err := c.delete(ctx, res.Accepted, receipts); err != nil {
		c.logger.Error("delete accepted messages failed", zap.Error(err))
	}
}

func (c *Consumer) delete(ctx context.Context, accepted []queue.Message, receipts map[string]*string) error {
	for start := 0; start < len(accepted); start += maxMessages {
		end := min(start+maxMessages, len(accepted))

		entries := make([]types.DeleteMessageBatchRequestEntry, 0, end-start)
		for i, m := range accepted[start:end] {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            awssdk.String(strconv.Itoa(start + i)),
				ReceiptHandle: receipts[m.ID],
			})
		}

		out, err := c.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: awssdk.String(c.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("delete message batch: %w", err)
		}
		for _, failed := range out.Failed {
			c.logger.Warn("message not deleted",
				zap.String("entry", awssdk.ToString(failed.Id)),
				zap.String("code", awssdk.ToString(failed.Code)),
				zap.String("reason", awssdk.ToString(failed.Message)),
			)
		}
	}
	return nil
}
