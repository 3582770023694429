package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"safestep/internal/intake/processor"
	"safestep/internal/queue"
)

type fakeClient struct {
	polls      []kgo.Fetches
	cancel     context.CancelFunc
	produced   []*kgo.Record
	committed  []*kgo.Record
	produceErr error
	commitErr  error
}

func (f *fakeClient) PollRecords(context.Context, int) kgo.Fetches {
	if len(f.polls) == 0 {
		f.cancel()
		return kgo.Fetches{}
	}
	next := f.polls[0]
	f.polls = f.polls[1:]
	return next
}

func (f *fakeClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.produceErr == nil {
			f.produced = append(f.produced, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.produceErr})
	}
	return results
}

func (f *fakeClient) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, rs...)
	return nil
}

type handlerFunc func(ctx context.Context, msgs []queue.Message) processor.Result

func (h handlerFunc) Process(ctx context.Context, msgs []queue.Message) processor.Result {
	return h(ctx, msgs)
}

// rejectBodies rejects messages whose body is in the set and accepts the rest.
func rejectBodies(committed bool, bodies ...string) handlerFunc {
	reject := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		reject[b] = true
	}
	return func(_ context.Context, msgs []queue.Message) processor.Result {
		res := processor.Result{Committed: committed}
		for _, m := range msgs {
			if reject[string(m.Body)] {
				res.Rejected = append(res.Rejected, processor.Rejection{Message: m, Reason: processor.ErrValidation})
				continue
			}
			res.Accepted = append(res.Accepted, m)
		}
		return res
	}
}

func fetchesOf(records ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "green-referrals",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
	}}}}
}

func record(offset int64, value string) *kgo.Record {
	return &kgo.Record{Topic: "green-referrals", Partition: 0, Offset: offset, Key: []byte("k"), Value: []byte(value)}
}

func headerValue(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func newTestConsumer(client Client, handler Handler) *Consumer {
	return NewConsumer(client, handler, Config{DLQTopic: "green-referrals-dlq", BatchSize: 10}, zap.NewNop())
}

func TestRun_DeadLettersRejectedAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{
		polls:  []kgo.Fetches{fetchesOf(record(1, "good"), record(2, "bad"))},
		cancel: cancel,
	}
	c := newTestConsumer(client, rejectBodies(true, "bad"))

	require.NoError(t, c.Run(ctx))

	require.Len(t, client.produced, 1)
	dead := client.produced[0]
	assert.Equal(t, "green-referrals-dlq", dead.Topic)
	assert.Equal(t, "bad", string(dead.Value))
	assert.Equal(t, processor.ErrValidation.Error(), headerValue(dead, HeaderReason))
	assert.Equal(t, "green-referrals/0/2", headerValue(dead, HeaderMessageID))
	assert.Len(t, client.committed, 2)
}

func TestHandleRecords_CommitFailureDeadLettersAccepted(t *testing.T) {
	client := &fakeClient{}
	c := newTestConsumer(client, rejectBodies(false, "bad"))

	err := c.HandleRecords(context.Background(), []*kgo.Record{record(1, "good"), record(2, "bad")})
	require.NoError(t, err)

	require.Len(t, client.produced, 2)
	reasons := []string{headerValue(client.produced[0], HeaderReason), headerValue(client.produced[1], HeaderReason)}
	assert.Contains(t, reasons, ReasonCommitFailed)
	assert.Len(t, client.committed, 2)
}

func TestHandleRecords_ProduceFailureKeepsOffsets(t *testing.T) {
	client := &fakeClient{produceErr: errors.New("broker down")}
	c := newTestConsumer(client, rejectBodies(true, "bad"))

	err := c.HandleRecords(context.Background(), []*kgo.Record{record(1, "bad")})
	require.Error(t, err)
	assert.Empty(t, client.committed)
}

func TestHandleRecords_AllAcceptedProducesNothing(t *testing.T) {
	client := &fakeClient{}
	c := newTestConsumer(client, rejectBodies(true))

	require.NoError(t, c.HandleRecords(context.Background(), []*kgo.Record{record(1, "a"), record(2, "b")}))
	assert.Empty(t, client.produced)
	assert.Len(t, client.committed, 2)
}

func TestHandleRecords_CommitOffsetsError(t *testing.T) {
	client := &fakeClient{commitErr: errors.New("rebalance")}
	c := newTestConsumer(client, rejectBodies(true))

	err := c.HandleRecords(context.Background(), []*kgo.Record{record(1, "a")})
	assert.ErrorContains(t, err, "commit offsets")
}

type fakeAdmin struct {
	resp kadm.CreateTopicResponses
	err  error
}

func (f fakeAdmin) CreateTopics(context.Context, int32, int16, map[string]*string, ...string) (kadm.CreateTopicResponses, error) {
	return f.resp, f.err
}

func TestEnsureTopics(t *testing.T) {
	err := EnsureTopics(context.Background(), fakeAdmin{resp: kadm.CreateTopicResponses{
		"dlq": {Topic: "dlq", Err: kerr.TopicAlreadyExists},
	}}, "dlq")
	assert.NoError(t, err)

	err = EnsureTopics(context.Background(), fakeAdmin{resp: kadm.CreateTopicResponses{
		"dlq": {Topic: "dlq", Err: kerr.InvalidReplicationFactor},
	}}, "dlq")
	assert.ErrorIs(t, err, kerr.InvalidReplicationFactor)

	err = EnsureTopics(context.Background(), fakeAdmin{err: errors.New("timeout")}, "dlq")
	assert.Error(t, err)
}
