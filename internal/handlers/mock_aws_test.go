package handlers

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// mockDynamo backs all three tables (lessons, orders, idempotency) so the
// handlers can be driven end to end through real stores.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) ensureTable(tbl string) {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
}

func (m *mockDynamo) seedLesson(table, id, subject, location string, price float64, available int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(table)
	m.tables[table][id] = map[string]types.AttributeValue{
		"id":        &types.AttributeValueMemberS{Value: id},
		"subject":   &types.AttributeValueMemberS{Value: subject},
		"location":  &types.AttributeValueMemberS{Value: location},
		"price":     &types.AttributeValueMemberN{Value: strconv.FormatFloat(price, 'f', -1, 64)},
		"available": &types.AttributeValueMemberN{Value: strconv.Itoa(available)},
	}
}

func (m *mockDynamo) lessonAvailable(table, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.Atoi(m.tables[table][id]["available"].(*types.AttributeValueMemberN).Value)
	return n
}

func (m *mockDynamo) tableSize(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func pkOf(attrs map[string]types.AttributeValue) (string, error) {
	for _, name := range []string{"idempotency_key", "order_id", "id"} {
		if v, ok := attrs[name]; ok {
			return v.(*types.AttributeValueMemberS).Value, nil
		}
	}
	return "", errors.New("no primary key attribute")
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(*params.TableName)
	pk, err := pkOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(idempotency_key)" {
		if _, exists := m.tables[*params.TableName][pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.tables[*params.TableName][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(*params.TableName)
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[*params.TableName][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(*params.TableName)
	out := &dyn.ScanOutput{}
	for _, item := range m.tables[*params.TableName] {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(*params.TableName)
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.tables[*params.TableName][pk]

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_exists(id)" && !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if !exists {
		return nil, errors.New("item not found")
	}

	for eav, attr := range map[string]string{
		":a":      "available",
		":done":   "status",
		":failed": "status",
		":rb":     "response_body",
		":rs":     "response_status",
		":n":      "note",
		":ua":     "updated_at",
	} {
		if v, ok := params.ExpressionAttributeValues[eav]; ok {
			item[attr] = v
		}
	}
	m.tables[*params.TableName][pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		code := "None"
		switch {
		case it.Put != nil:
			m.ensureTable(*it.Put.TableName)
			pk, err := pkOf(it.Put.Item)
			if err != nil {
				return nil, err
			}
			if it.Put.ConditionExpression != nil && *it.Put.ConditionExpression == "attribute_not_exists(order_id)" {
				if _, exists := m.tables[*it.Put.TableName][pk]; exists {
					code = "ConditionalCheckFailed"
				}
			}
		case it.Update != nil:
			m.ensureTable(*it.Update.TableName)
			pk, err := pkOf(it.Update.Key)
			if err != nil {
				return nil, err
			}
			item, exists := m.tables[*it.Update.TableName][pk]
			if !exists {
				code = "ConditionalCheckFailed"
			} else {
				avail, _ := strconv.Atoi(item["available"].(*types.AttributeValueMemberN).Value)
				q, _ := strconv.Atoi(it.Update.ExpressionAttributeValues[":q"].(*types.AttributeValueMemberN).Value)
				if avail < q {
					code = "ConditionalCheckFailed"
				}
			}
		}
		if code != "None" {
			failed = true
		}
		c := code
		reasons[i] = types.CancellationReason{Code: &c}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			pk, _ := pkOf(it.Put.Item)
			m.tables[*it.Put.TableName][pk] = it.Put.Item
		case it.Update != nil:
			pk, _ := pkOf(it.Update.Key)
			item := m.tables[*it.Update.TableName][pk]
			avail, _ := strconv.Atoi(item["available"].(*types.AttributeValueMemberN).Value)
			q, _ := strconv.Atoi(it.Update.ExpressionAttributeValues[":q"].(*types.AttributeValueMemberN).Value)
			item["available"] = &types.AttributeValueMemberN{Value: strconv.Itoa(avail - q)}
			m.tables[*it.Update.TableName][pk] = item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// mockSQS records sent messages.
type mockSQS struct {
	mu   sync.Mutex
	sent []*sqs.SendMessageInput
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

func (m *mockSQS) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
