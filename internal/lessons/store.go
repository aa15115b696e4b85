package lessons

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ibeanu/lesson-store/internal/aws"
)

// ErrNotFound indicates no lesson exists for the given id.
var ErrNotFound = errors.New("lesson not found")

// ErrInsufficientStock indicates a decrement would take available below zero.
var ErrInsufficientStock = errors.New("insufficient availability")

// Store encapsulates operations on the lessons table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new lessons Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// List returns every lesson in the table.
func (s *Store) List(ctx context.Context) ([]Lesson, error) {
	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName: &s.tableName,
	})
	if err != nil {
		return nil, fmt.Errorf("scan lessons: %w", err)
	}
	lessons := make([]Lesson, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &lessons); err != nil {
		return nil, fmt.Errorf("unmarshal lessons: %w", err)
	}
	return lessons, nil
}

// Get fetches a lesson by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Lesson, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var l Lesson
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshal lesson: %w", err)
	}
	return &l, nil
}

// SetAvailability writes an absolute available count. Last writer wins.
// Returns ErrNotFound when no lesson has the given id.
func (s *Store) SetAvailability(ctx context.Context, id string, available int) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression: awsString("SET available = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberN{Value: strconv.Itoa(available)},
		},
		ConditionExpression: awsString("attribute_exists(id)"),
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrNotFound
		}
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}

// Decrement atomically lowers available by quantity, guarded so the count
// cannot go negative. A conditional failure means the lesson is missing or
// has fewer seats than requested; both surface as ErrInsufficientStock.
func (s *Store) Decrement(ctx context.Context, id string, quantity int) error {
	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       lessonKey(id),
		UpdateExpression:          awsString("SET available = available - :q"),
		ExpressionAttributeValues: quantityValues(quantity),
		ConditionExpression:       awsString("attribute_exists(id) AND available >= :q"),
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return fmt.Errorf("lesson %s: %w", id, ErrInsufficientStock)
		}
		return fmt.Errorf("decrement availability: %w", err)
	}
	return nil
}

// DecrementTransactItem builds the same guarded decrement as a transact item,
// so order placement can bundle every line-item decrement with the order put
// in a single TransactWriteItems call.
func (s *Store) DecrementTransactItem(id string, quantity int) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 &s.tableName,
			Key:                       lessonKey(id),
			UpdateExpression:          awsString("SET available = available - :q"),
			ExpressionAttributeValues: quantityValues(quantity),
			ConditionExpression:       awsString("attribute_exists(id) AND available >= :q"),
		},
	}
}

func lessonKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func quantityValues(quantity int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":q": &types.AttributeValueMemberN{Value: strconv.Itoa(quantity)},
	}
}

func awsString(s string) *string { return &s }
