package dynamodb

import (
	"context"
	"fmt"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"safestep/internal/intake/store"
	"safestep/pkg/platform/sentinel"
)

// maxBatchRequests is the BatchWriteItem per-call request limit.
const maxBatchRequests = 25

// API is the subset of the DynamoDB client the store calls.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store implements store.Store on DynamoDB tables with global secondary
// indexes on the lookup attributes.
type Store struct {
	client API
}

// New wraps an existing client.
func New(client API) *Store {
	return &Store{client: client}
}

// NewFromConfig builds a client from shared SDK config. endpoint overrides the
// resolved endpoint when non-nil (dynamodb-local, localstack).
func NewFromConfig(cfg awssdk.Config, endpoint *string) *Store {
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
	return New(client)
}

func (s *Store) Query(ctx context.Context, table string, cond store.KeyCondition) ([]store.Item, error) {
	input := &dynamodb.QueryInput{
		TableName:              awssdk.String(table),
		KeyConditionExpression: awssdk.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": cond.Attribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: cond.Value},
		},
	}
	if cond.Index != "" {
		input.IndexName = awssdk.String(cond.Index)
	}

	var items []store.Item
	pages := dynamodb.NewQueryPaginator(s.client, input)
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		for _, raw := range out.Items {
			var item store.Item
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("decode %s item: %w", table, err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

type putRequest struct {
	table string
	req   types.WriteRequest
}

// BatchWrite puts every item, splitting into BatchWriteItem calls of at most
// 25 requests. Items DynamoDB reports as unprocessed are not retried.
func (s *Store) BatchWrite(ctx context.Context, writes map[string][]store.Item) error {
	tables := make([]string, 0, len(writes))
	for table, items := range writes {
		if len(items) == 0 {
			return fmt.Errorf("batch write for table %q has no items", table)
		}
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var requests []putRequest
	for _, table := range tables {
		for _, item := range writes[table] {
			av, err := attributevalue.MarshalMap(map[string]string(item))
			if err != nil {
				return fmt.Errorf("encode %s item: %w", table, err)
			}
			requests = append(requests, putRequest{
				table: table,
				req:   types.WriteRequest{PutRequest: &types.PutRequest{Item: av}},
			})
		}
	}

	for start := 0; start < len(requests); start += maxBatchRequests {
		end := start + maxBatchRequests
		if end > len(requests) {
			end = len(requests)
		}

		chunk := make(map[string][]types.WriteRequest)
		for _, r := range requests[start:end] {
			chunk[r.table] = append(chunk[r.table], r.req)
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: chunk})
		if err != nil {
			return fmt.Errorf("batch write items: %w", err)
		}
		if n := countUnprocessed(out.UnprocessedItems); n > 0 {
			return fmt.Errorf("%d of %d items unprocessed: %w", n, end-start, sentinel.ErrPartialWrite)
		}
	}
	return nil
}

func countUnprocessed(unprocessed map[string][]types.WriteRequest) int {
	n := 0
	for _, reqs := range unprocessed {
		n += len(reqs)
	}
	return n
}
