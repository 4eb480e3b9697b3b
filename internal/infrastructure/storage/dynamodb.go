package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"DailyDigest/internal/ports"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements ports.KVStore on a table keyed by (namespace, entry_key).
// expires_at holds epoch seconds and should be configured as the table's TTL attribute;
// reads filter expired items because DynamoDB deletes them lazily.
type DynamoStore struct {
	client    DynamoAPI
	table     string
	namespace string
	now       func() time.Time
}

type dynamoItem struct {
	Namespace string `dynamodbav:"namespace"`
	Key       string `dynamodbav:"entry_key"`
	Value     []byte `dynamodbav:"entry_value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

var _ ports.KVStore = (*DynamoStore)(nil)

// NewDynamoStore binds a namespace of table to the client.
func NewDynamoStore(client DynamoAPI, table, namespace string) *DynamoStore {
	return &DynamoStore{client: client, table: table, namespace: namespace, now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (d *DynamoStore) WithClock(now func() time.Time) *DynamoStore {
	d.now = now
	return d
}

// Get fetches a live item.
func (d *DynamoStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrKeyNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item %s: %w", key, err)
	}
	if d.expired(item.ExpiresAt) {
		return nil, ports.ErrKeyNotFound
	}
	return item.Value, nil
}

// Put writes the item unconditionally.
func (d *DynamoStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item, err := d.marshal(key, value, ttl)
	if err != nil {
		return err
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent writes the item unless a live one exists.
func (d *DynamoStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	item, err := d.marshal(key, value, ttl)
	if err != nil {
		return false, err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entry_key) OR (expires_at > :zero AND expires_at <= :now)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(d.now().Unix(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("put item %s: %w", key, err)
	}
	return true, nil
}

// List queries every key of the namespace.
func (d *DynamoStore) List(ctx context.Context) ([]string, error) {
	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("#ns = :ns"),
		ExpressionAttributeNames: map[string]string{
			"#ns": "namespace",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ns": &types.AttributeValueMemberS{Value: d.namespace},
		},
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query namespace %s: %w", d.namespace, err)
		}
		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal page: %w", err)
		}
		for _, item := range items {
			if !d.expired(item.ExpiresAt) {
				keys = append(keys, item.Key)
			}
		}
	}
	return keys, nil
}

// Delete removes the item.
func (d *DynamoStore) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.itemKey(key),
	}); err != nil {
		return fmt.Errorf("delete item %s: %w", key, err)
	}
	return nil
}

func (d *DynamoStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"namespace": &types.AttributeValueMemberS{Value: d.namespace},
		"entry_key": &types.AttributeValueMemberS{Value: key},
	}
}

func (d *DynamoStore) marshal(key string, value []byte, ttl time.Duration) (map[string]types.AttributeValue, error) {
	item := dynamoItem{Namespace: d.namespace, Key: key, Value: value}
	if ttl > 0 {
		item.ExpiresAt = d.now().Add(ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item %s: %w", key, err)
	}
	return av, nil
}

func (d *DynamoStore) expired(expiresAt int64) bool {
	return expiresAt > 0 && expiresAt <= d.now().Unix()
}
