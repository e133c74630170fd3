package dynamoledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/genohdc/privacy/numeric"
)

// DDBClient is the subset of the DynamoDB API the ledger uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Ledger implements numeric.Ledger on a DynamoDB table.
type Ledger struct {
	client    DDBClient
	tableName string
}

var _ numeric.Ledger = (*Ledger)(nil)

// New creates a ledger writing to tableName.
func New(client DDBClient, tableName string) *Ledger {
	return &Ledger{client: client, tableName: tableName}
}

// Record writes s unless the account already has an entry with the same
// sequence number.
func (l *Ledger) Record(ctx context.Context, s numeric.Spend) error {
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"account":  &types.AttributeValueMemberS{Value: s.Account},
			"sequence": &types.AttributeValueMemberN{Value: strconv.FormatUint(s.Sequence, 10)},
			"epsilon":  &types.AttributeValueMemberN{Value: strconv.FormatFloat(s.Epsilon, 'g', -1, 64)},
			"delta":    &types.AttributeValueMemberN{Value: strconv.FormatFloat(s.Delta, 'g', -1, 64)},
			"time":     &types.AttributeValueMemberS{Value: s.Time.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(#seq)"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "sequence",
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return numeric.ErrDuplicateSpend
		}
		return fmt.Errorf("failed to record spend in DynamoDB: %w", err)
	}
	return nil
}

// Spends returns every recorded spend of account in sequence order.
func (l *Ledger) Spends(ctx context.Context, account string) ([]numeric.Spend, error) {
	var (
		out   []numeric.Spend
		start map[string]types.AttributeValue
	)
	for {
		resp, err := l.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(l.tableName),
			KeyConditionExpression: aws.String("account = :account"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":account": &types.AttributeValueMemberS{Value: account},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range resp.Items {
			s, err := decodeSpend(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = resp.LastEvaluatedKey
	}
}

// Replay charges every recorded spend of the account against b. It is used
// to rebuild an account after a restart.
func (l *Ledger) Replay(ctx context.Context, account string, b *numeric.BudgetAccount) error {
	spends, err := l.Spends(ctx, account)
	if err != nil {
		return err
	}
	for _, s := range spends {
		if err := b.Restore(s); err != nil {
			return fmt.Errorf("replay spend %d: %w", s.Sequence, err)
		}
	}
	return nil
}

func decodeSpend(item map[string]types.AttributeValue) (numeric.Spend, error) {
	var s numeric.Spend

	account, ok := item["account"].(*types.AttributeValueMemberS)
	if !ok {
		return s, errors.New("invalid account attribute in DynamoDB")
	}
	s.Account = account.Value

	seq, ok := item["sequence"].(*types.AttributeValueMemberN)
	if !ok {
		return s, errors.New("invalid sequence attribute in DynamoDB")
	}
	n, err := strconv.ParseUint(seq.Value, 10, 64)
	if err != nil {
		return s, fmt.Errorf("failed to parse sequence: %w", err)
	}
	s.Sequence = n

	if s.Epsilon, err = parseNumber(item, "epsilon"); err != nil {
		return s, err
	}
	if s.Delta, err = parseNumber(item, "delta"); err != nil {
		return s, err
	}

	if ts, ok := item["time"].(*types.AttributeValueMemberS); ok {
		if s.Time, err = time.Parse(time.RFC3339Nano, ts.Value); err != nil {
			return s, fmt.Errorf("failed to parse time: %w", err)
		}
	}
	return s, nil
}

func parseNumber(item map[string]types.AttributeValue, name string) (float64, error) {
	attr, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	v, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}
