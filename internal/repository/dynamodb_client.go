package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dms-comments/internal/domain"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ dynamodbAPI = (*dynamodb.Client)(nil)

// Client stores comments in a single DynamoDB table keyed by PK (document id)
// and SK (Comment#<id>).
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// ListComments queries every Comment# item in a document's partition,
// following pagination until the result set is exhausted.
func (c *Client) ListComments(ctx context.Context, documentID string) ([]domain.Comment, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: documentID},
			":prefix": &types.AttributeValueMemberS{Value: domain.CommentSKPrefix},
		},
	}

	comments := make([]domain.Comment, 0)
	pages := dynamodb.NewQueryPaginator(c.api, in)
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository: ListComments query: %w", err)
		}
		var page []domain.Comment
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("repository: ListComments unmarshal: %w", err)
		}
		for _, comment := range page {
			if comment.DocumentID == "" || comment.CommentID == "" {
				return nil, errors.New("repository: ListComments: item is missing PK or SK")
			}
		}
		comments = append(comments, page...)
	}
	return comments, nil
}

// PutComment writes a new comment item. The write fails if the key is taken.
func (c *Client) PutComment(ctx context.Context, comment domain.Comment) error {
	if comment.DocumentID == "" || comment.CommentID == "" {
		return errors.New("repository: PutComment: PK and SK are required")
	}

	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return fmt.Errorf("repository: PutComment marshal: %w", err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutComment: %w", err)
	}
	return nil
}

// DeleteComment removes the item at (documentID, sk). Missing items are not an error.
func (c *Client) DeleteComment(ctx context.Context, documentID, sk string) error {
	if documentID == "" || sk == "" {
		return errors.New("repository: DeleteComment: PK and SK are required")
	}

	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: documentID},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteComment: %w", err)
	}
	return nil
}
