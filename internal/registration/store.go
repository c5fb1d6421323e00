package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ErrStoreUnavailable is returned by Create when the table cannot be written.
var ErrStoreUnavailable = errors.New("registration store unavailable")

// maxScanPages bounds every scan loop so a store that keeps handing out
// continuation tokens cannot stall a request forever.
const maxScanPages = 64

// TableClient is the slice of the key-value client the store needs:
// unconditional puts and paged scans. The DynamoDB client satisfies it
// directly; an in-memory implementation stands in for local runs and tests.
type TableClient interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store creates and looks up registration records. The table has no
// secondary indexes, so every read is a scan; read failures degrade to
// empty results instead of failing the caller's page.
type Store struct {
	client TableClient
	table  string

	now   func() time.Time
	newID func() string
}

// NewStore returns a Store writing to and scanning the named table.
func NewStore(client TableClient, table string) *Store {
	return &Store{
		client: client,
		table:  table,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create writes a new record with a fresh id and the current timestamp. The
// write is unconditional: nothing checks whether the email is already
// registered, duplicates coexist in the table. A failed write wraps
// ErrStoreUnavailable; creation is the one store operation whose failure the
// caller must see.
func (s *Store) Create(ctx context.Context, name, email, destination string) (Record, error) {
	rec := Record{
		ID:          s.newID(),
		Name:        name,
		Email:       email,
		Destination: destination,
		CreatedAt:   s.now().Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode record: %v", ErrStoreUnavailable, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: put record: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. The whole table is
// scanned page by page and sorted afterwards; the table offers no ordering
// of its own. Transport failures degrade to an empty result so the page
// rendering on top of this never breaks over a listing.
func (s *Store) List(ctx context.Context, limit int) []Record {
	if limit <= 0 {
		return nil
	}

	var records []Record
	var start map[string]types.AttributeValue

	for page := 0; page < maxScanPages; page++ {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: start,
		})
		if err != nil {
			slog.Warn("registration list degraded to empty", "error", err)
			return nil
		}

		var batch []Record
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
			slog.Warn("registration list degraded to empty", "error", err)
			return nil
		}
		records = append(records, batch...)

		start = out.LastEvaluatedKey
		if len(start) == 0 {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// FindByEmail scans for the first record whose email matches, following
// continuation tokens until a match, the end of the table, or the page
// bound. With no index on email this is a linear scan, and with duplicate
// emails "first" means first in the table's native scan order, not
// necessarily the most recent registration. Transport failures degrade
// to not-found.
func (s *Store) FindByEmail(ctx context.Context, email string) (Record, bool) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("email").Equal(expression.Value(email))).
		Build()
	if err != nil {
		slog.Warn("registration lookup degraded to not-found", "error", err)
		return Record{}, false
	}

	var start map[string]types.AttributeValue

	for page := 0; page < maxScanPages; page++ {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			slog.Warn("registration lookup degraded to not-found", "error", err)
			return Record{}, false
		}

		// A page can come back empty and still carry a continuation token
		// when the filter matched nothing in the scanned range.
		if len(out.Items) > 0 {
			var batch []Record
			if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
				slog.Warn("registration lookup degraded to not-found", "error", err)
				return Record{}, false
			}
			return batch[0], true
		}

		start = out.LastEvaluatedKey
		if len(start) == 0 {
			break
		}
	}
	return Record{}, false
}
