// Package store provides the key-value clients the registration store runs
// on: the real DynamoDB client and an in-memory stand-in for local runs and
// tests.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyAttribute is the primary key attribute of every table held in memory.
const keyAttribute = "id"

// defaultPageSize caps how many items a single Scan call evaluates when the
// request does not set its own limit.
const defaultPageSize = 100

// Memory is a concurrency-safe in-memory key-value store speaking the same
// put/scan surface as DynamoDB, including continuation-token pagination:
// Scan evaluates a bounded page of items in insertion order and hands back
// the key of the last evaluated item when more remain. Filtered pages may
// be empty and still carry a continuation token, exactly like the real
// service.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]map[string]types.AttributeValue

	pageSize int
}

// NewMemory creates an empty store. pageSize bounds items evaluated per
// Scan call; values <= 0 fall back to the default.
func NewMemory(pageSize int) *Memory {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Memory{
		tables:   make(map[string][]map[string]types.AttributeValue),
		pageSize: pageSize,
	}
}

// PutItem appends the item to the named table, creating the table on first
// write. Puts are unconditional; an existing item with the same key is not
// replaced, matching how the registration table is written (ids are never
// reused).
func (m *Memory) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil || in.TableName == nil || *in.TableName == "" {
		return nil, fmt.Errorf("memory store: missing table name")
	}
	if len(in.Item) == 0 {
		return nil, fmt.Errorf("memory store: missing item")
	}

	item := make(map[string]types.AttributeValue, len(in.Item))
	for k, v := range in.Item {
		item[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[*in.TableName] = append(m.tables[*in.TableName], item)
	return &dynamodb.PutItemOutput{}, nil
}

// Scan returns one page of items in insertion order. A scan of a table that
// was never written is empty, not an error.
func (m *Memory) Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil || in.TableName == nil || *in.TableName == "" {
		return nil, fmt.Errorf("memory store: missing table name")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.tables[*in.TableName]

	start := 0
	if len(in.ExclusiveStartKey) > 0 {
		idx, err := m.indexOfKey(items, in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = idx + 1
	}

	pageSize := m.pageSize
	if in.Limit != nil && int(*in.Limit) > 0 && int(*in.Limit) < pageSize {
		pageSize = int(*in.Limit)
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]

	out := &dynamodb.ScanOutput{
		ScannedCount: int32(len(page)),
	}

	for _, item := range page {
		if in.FilterExpression != nil {
			match, err := matchesFilter(item, *in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		out.Items = append(out.Items, item)
	}
	out.Count = int32(len(out.Items))

	if end < len(items) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			keyAttribute: page[len(page)-1][keyAttribute],
		}
	}
	return out, nil
}

func (m *Memory) indexOfKey(items []map[string]types.AttributeValue, key map[string]types.AttributeValue) (int, error) {
	want, ok := key[keyAttribute].(*types.AttributeValueMemberS)
	if !ok {
		return 0, fmt.Errorf("memory store: start key missing %s attribute", keyAttribute)
	}
	for i, item := range items {
		if got, ok := item[keyAttribute].(*types.AttributeValueMemberS); ok && got.Value == want.Value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("memory store: start key not found")
}

// matchesFilter evaluates the one filter shape the registration store
// builds: a single equality between an attribute and a bound value, as
// rendered by the expression builder ("#0 = :0").
func matchesFilter(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	parts := strings.SplitN(expr, " = ", 2)
	if len(parts) != 2 {
		return false, fmt.Errorf("memory store: unsupported filter expression %q", expr)
	}

	name := strings.TrimSpace(parts[0])
	if resolved, ok := names[name]; ok {
		name = resolved
	}

	ref := strings.TrimSpace(parts[1])
	want, ok := values[ref]
	if !ok {
		return false, fmt.Errorf("memory store: filter references unbound value %q", ref)
	}

	got, ok := item[name]
	if !ok {
		return false, nil
	}
	return attributeEqual(got, want), nil
}

func attributeEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}
