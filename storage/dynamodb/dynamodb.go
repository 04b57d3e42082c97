// Package dynamodb provides a storage.Backend storing each resource
// blob as one DynamoDB item. It suits small archives (configuration
// tables, lookup data) that want serverless storage without an object
// store; DynamoDB's 400KB item limit bounds the resource size.
//
// Table schema:
//   - Partition key: name (string) - the resource blob name
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name flatarc-resources \
//	  --attribute-definitions AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/flatarc/storage"
)

// maxItemBytes is DynamoDB's item size limit, minus headroom for the
// key attribute and per-item overhead.
const maxItemBytes = 395 * 1024

// Client is the subset of the DynamoDB API the backend uses. It matches
// *dynamodb.Client and allows substituting a fake in tests.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Backend implements storage.Backend on a DynamoDB table.
type Backend struct {
	client    Client
	tableName string
}

// New creates a DynamoDB backend on the given table.
func New(client Client, tableName string) *Backend {
	return &Backend{
		client:    client,
		tableName: tableName,
	}
}

func (b *Backend) getItem(ctx context.Context, name string) (*dynamodb.GetItemOutput, error) {
	return b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(b.tableName),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
}

// Exists reports whether an item exists under name.
func (b *Backend) Exists(ctx context.Context, name string) bool {
	resp, err := b.getItem(ctx, name)
	if err != nil {
		return false
	}
	return len(resp.Item) > 0
}

// Read returns the blob attribute of the item stored under name.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := b.getItem(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dynamodb get %q: %w", name, err)
	}
	if len(resp.Item) == 0 {
		return nil, storage.ErrNotFound
	}

	attr, ok := resp.Item["data"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("dynamodb item %q: missing binary data attribute", name)
	}
	return attr.Value, nil
}

// Write stores data as the item under name.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	if len(data) > maxItemBytes {
		return fmt.Errorf("dynamodb item %q: blob of %d bytes exceeds the %d-byte item limit",
			name, len(data), maxItemBytes)
	}
	_, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.tableName),
		Item: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
			"data": &types.AttributeValueMemberB{Value: data},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb put %q: %w", name, err)
	}
	return nil
}

var _ storage.Backend = (*Backend)(nil)
