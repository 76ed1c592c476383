package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoOptions locates the entries table.
type DynamoOptions struct {
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Table          string
	OwnerDateIndex string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewDynamoClient builds a DynamoDB client. Endpoint overrides the regional
// endpoint, e.g. for DynamoDB Local.
func NewDynamoClient(ctx context.Context, o DynamoOptions) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(do *dynamodb.Options) {
		if o.Endpoint != "" {
			do.BaseEndpoint = aws.String(o.Endpoint)
		}
	}), nil
}

// DynamoRepository stores one item per entry keyed by entryId, with a
// global secondary index on (userId, date) for per-owner listing.
type DynamoRepository struct {
	client DynamoAPI
	table  string
	index  string
}

func NewDynamoRepository(client DynamoAPI, table, ownerDateIndex string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table, index: ownerDateIndex}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"entryId": &types.AttributeValueMemberS{Value: id}}
}

func (r *DynamoRepository) Create(ctx context.Context, entry *models.Entry) error {
	item, err := attributevalue.MarshalMap(entry.Normalize())
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entryId)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	var e models.Entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return e.Normalize(), nil
}

// queryOwner pages through the owner/date index and returns every match.
func (r *DynamoRepository) queryOwner(ctx context.Context, keyCond string, values map[string]types.AttributeValue) ([]*models.Entry, error) {
	names := map[string]string{"#u": "userId"}
	if strings.Contains(keyCond, "#d") {
		names["#d"] = "date"
	}

	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(r.index),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	})

	result := []*models.Entry{}
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query entries: %w", err)
		}
		var page []*models.Entry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal entries: %w", err)
		}
		for _, e := range page {
			result = append(result, e.Normalize())
		}
	}
	return result, nil
}

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

// List reads the owner's whole date range from the index and pages in
// memory, since DynamoDB has no offset and the total must be exact.
func (r *DynamoRepository) List(ctx context.Context, req query.Request) (*query.Page, error) {
	keyCond := "#u = :uid"
	values := map[string]types.AttributeValue{":uid": str(req.OwnerID)}

	switch {
	case req.Range.After != "" && req.Range.Before != "":
		keyCond += " AND #d BETWEEN :after AND :before"
		values[":after"], values[":before"] = str(req.Range.After), str(req.Range.Before)
	case req.Range.After != "":
		keyCond += " AND #d >= :after"
		values[":after"] = str(req.Range.After)
	case req.Range.Before != "":
		keyCond += " AND #d <= :before"
		values[":before"] = str(req.Range.Before)
	}

	all, err := r.queryOwner(ctx, keyCond, values)
	if err != nil {
		return nil, err
	}
	return query.Apply(all, req), nil
}

func (r *DynamoRepository) ListByDate(ctx context.Context, ownerID, date string) ([]*models.Entry, error) {
	out, err := r.queryOwner(ctx, "#u = :uid AND #d = :d",
		map[string]types.AttributeValue{":uid": str(ownerID), ":d": str(date)})
	if err != nil {
		return nil, err
	}
	query.Sort(out)
	return out, nil
}

// DeleteOwned relies on a condition expression so ownership is checked and
// the item removed atomically.
func (r *DynamoRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.table),
		Key:                       idKey(id),
		ConditionExpression:       aws.String("attribute_not_exists(entryId) OR #u = :uid"),
		ExpressionAttributeNames:  map[string]string{"#u": "userId"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": str(ownerID)},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return common.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	return err
}
