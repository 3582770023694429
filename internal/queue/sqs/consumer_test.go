package sqs

import (
	"context"
	"errors"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safestep/internal/intake/processor"
	"safestep/internal/queue"
)

type fakeAPI struct {
	receives   []*sqs.ReceiveMessageOutput
	receiveErr error
	cancel     context.CancelFunc
	receiveIn  []*sqs.ReceiveMessageInput
	deleted    []types.DeleteMessageBatchRequestEntry
	deleteErr  error
}

func (f *fakeAPI) ReceiveMessage(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.receiveIn = append(f.receiveIn, params)
	if f.receiveErr != nil {
		err := f.receiveErr
		f.receiveErr = nil
		return nil, err
	}
	if len(f.receives) == 0 {
		f.cancel()
		return &sqs.ReceiveMessageOutput{}, nil
	}
	next := f.receives[0]
	f.receives = f.receives[1:]
	return next, nil
}

func (f *fakeAPI) DeleteMessageBatch(_ context.Context, params *sqs.DeleteMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, params.Entries...)
	return &sqs.DeleteMessageBatchOutput{}, nil
}

type handlerFunc func(ctx context.Context, msgs []queue.Message) processor.Result

func (h handlerFunc) Process(ctx context.Context, msgs []queue.Message) processor.Result {
	return h(ctx, msgs)
}

func rejectIDs(committed bool, ids ...string) handlerFunc {
	reject := make(map[string]bool, len(ids))
	for _, id := range ids {
		reject[id] = true
	}
	return func(_ context.Context, msgs []queue.Message) processor.Result {
		res := processor.Result{Committed: committed}
		for _, m := range msgs {
			if reject[m.ID] {
				res.Rejected = append(res.Rejected, processor.Rejection{Message: m, Reason: processor.ErrValidation})
				continue
			}
			res.Accepted = append(res.Accepted, m)
		}
		return res
	}
}

func message(id string) types.Message {
	return types.Message{
		MessageId:     awssdk.String(id),
		ReceiptHandle: awssdk.String("rh-" + id),
		Body:          awssdk.String(`{"greenId":"g1"}`),
	}
}

func TestRun_DeletesOnlyAccepted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{
		receives: []*sqs.ReceiveMessageOutput{{Messages: []types.Message{message("a"), message("b"), message("c")}}},
		cancel:   cancel,
	}
	c := NewConsumer(api, rejectIDs(true, "b"), "https://sqs/queue", 10, 20*time.Second, zap.NewNop())

	require.NoError(t, c.Run(ctx))

	require.NotEmpty(t, api.receiveIn)
	assert.Equal(t, int32(10), api.receiveIn[0].MaxNumberOfMessages)
	assert.Equal(t, int32(20), api.receiveIn[0].WaitTimeSeconds)

	var handles []string
	for _, e := range api.deleted {
		handles = append(handles, awssdk.ToString(e.ReceiptHandle))
	}
	assert.Equal(t, []string{"rh-a", "rh-c"}, handles)
}

func TestHandleMessages_CommitFailureDeletesNothing(t *testing.T) {
	api := &fakeAPI{}
	c := NewConsumer(api, rejectIDs(false), "q", 10, time.Second, zap.NewNop())

	c.HandleMessages(context.Background(), []types.Message{message("a")})
	assert.Empty(t, api.deleted)
}

func TestHandleMessages_DeleteErrorIsLogged(t *testing.T) {
	api := &fakeAPI{deleteErr: errors.New("access denied")}
	c := NewConsumer(api, rejectIDs(true), "q", 10, time.Second, zap.NewNop())

	assert.NotPanics(t, func() {
		c.HandleMessages(context.Background(), []types.Message{message("a")})
	})
}

func TestRun_RetriesAfterReceiveError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{
		receiveErr: errors.New("throttled"),
		receives:   []*sqs.ReceiveMessageOutput{{Messages: []types.Message{message("a")}}},
		cancel:     cancel,
	}
	c := NewConsumer(api, rejectIDs(true), "q", 5, time.Second, zap.NewNop())
	c.backoff = time.Millisecond

	require.NoError(t, c.Run(ctx))
	assert.Len(t, api.receiveIn, 3)
	assert.Len(t, api.deleted, 1)
}

func TestNewConsumer_ClampsBatchSize(t *testing.T) {
	c := NewConsumer(&fakeAPI{}, rejectIDs(true), "q", 50, time.Second, zap.NewNop())
	assert.Equal(t, int32(maxMessages), c.batchSize)
}
