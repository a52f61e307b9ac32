// Package store persists movie infos and reviews in DynamoDB.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrNotFound is returned when no item has the requested key.
var ErrNotFound = errors.New("item not found")

// DynamoDBAPI is the part of *dynamodb.Client the stores use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// table reads and writes items of type T keyed by a single string attribute.
type table[T any] struct {
	api  DynamoDBAPI
	name string
	key  string
}

func (t table[T]) get(ctx context.Context, id string) (T, error) {
	var item T
	result, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key: map[string]types.AttributeValue{
			t.key: &types.AttributeValueMemberS{Value: id},
		},
	})
	switch {
	case err != nil:
		return item, fmt.Errorf("get item: %w", err)
	case result.Item == nil:
		return item, ErrNotFound
	}

	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return item, fmt.Errorf("unmarshal item: %w", err)
	}
	return item, nil
}

func (t table[T]) put(ctx context.Context, item T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	if _, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (t table[T]) delete(ctx context.Context, id string) error {
	if _, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key: map[string]types.AttributeValue{
			t.key: &types.AttributeValueMemberS{Value: id},
		},
	}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (t table[T]) scan(ctx context.Context, input *dynamodb.ScanInput) ([]T, error) {
	input.TableName = aws.String(t.name)

	items := []T{}
	p := dynamodb.NewScanPaginator(t.api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}

		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (t table[T]) query(ctx context.Context, input *dynamodb.QueryInput) ([]T, error) {
	input.TableName = aws.String(t.name)

	items := []T{}
	p := dynamodb.NewQueryPaginator(t.api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.name, err)
		}

		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}
