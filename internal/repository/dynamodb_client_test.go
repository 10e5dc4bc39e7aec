package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"dms-comments/internal/domain"
)

type fakeDynamo struct {
	pages        []*dynamodb.QueryOutput
	queryErr     error
	putErr       error
	deleteErr    error
	queryInputs  []*dynamodb.QueryInput
	lastPutInput *dynamodb.PutItemInput
	lastDelInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	idx := len(f.queryInputs) - 1
	if idx >= len(f.pages) {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.pages[idx], nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDelInput = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func makeItem(pk, sk, text string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: pk},
		"SK":        &types.AttributeValueMemberS{Value: sk},
		"DateAdded": &types.AttributeValueMemberS{Value: "2026-10-15T09:30:00.000Z"},
		"Owner":     &types.AttributeValueMemberS{Value: domain.AnonymousOwner},
		"Comment":   &types.AttributeValueMemberS{Value: text},
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "documents")
	require.NoError(t, err)
	return c
}

func TestListComments_HappyPath(t *testing.T) {
	db := &fakeDynamo{pages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{makeItem("doc-1", "Comment#a", "first")}},
	}}
	c := mustNewClient(t, db)

	comments, err := c.ListComments(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, domain.Comment{
		DocumentID: "doc-1",
		CommentID:  "Comment#a",
		DateAdded:  "2026-10-15T09:30:00.000Z",
		Owner:      domain.AnonymousOwner,
		Content:    "first",
	}, comments[0])
}

func TestListComments_KeyConditionExpression(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	_, err := c.ListComments(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, db.queryInputs, 1)
	in := db.queryInputs[0]
	require.Equal(t, "documents", *in.TableName)
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *in.KeyConditionExpression)
	require.Equal(t, "doc-1", in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Comment#", in.ExpressionAttributeValues[":prefix"].(*types.AttributeValueMemberS).Value)
}

func TestListComments_EmptyResult(t *testing.T) {
	db := &fakeDynamo{pages: []*dynamodb.QueryOutput{{}}}
	c := mustNewClient(t, db)

	comments, err := c.ListComments(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotNil(t, comments)
	require.Empty(t, comments)
}

func TestListComments_FollowsPagination(t *testing.T) {
	cursor := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "doc-1"},
		"SK": &types.AttributeValueMemberS{Value: "Comment#a"},
	}
	db := &fakeDynamo{pages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{makeItem("doc-1", "Comment#a", "first")}, LastEvaluatedKey: cursor},
		{Items: []map[string]types.AttributeValue{makeItem("doc-1", "Comment#b", "second")}},
	}}
	c := mustNewClient(t, db)

	comments, err := c.ListComments(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "second", comments[1].Content)
	require.Len(t, db.queryInputs, 2)
	require.Equal(t, cursor, db.queryInputs[1].ExclusiveStartKey)
}

func TestListComments_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	c := mustNewClient(t, db)

	_, err := c.ListComments(context.Background(), "doc-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ListComments")
	require.ErrorContains(t, err, "ResourceNotFoundException")
}

func TestListComments_MalformedItem(t *testing.T) {
	db := &fakeDynamo{pages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{{
			"Comment": &types.AttributeValueMemberS{Value: "orphan"},
		}}},
	}}
	c := mustNewClient(t, db)

	_, err := c.ListComments(context.Background(), "doc-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing PK or SK")
}

func TestPutComment_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.PutComment(context.Background(), domain.Comment{
		DocumentID: "doc-1",
		CommentID:  "Comment#a",
		DateAdded:  "2026-10-15T09:30:00.000Z",
		Owner:      "user-1",
		Content:    "hello",
	})
	require.NoError(t, err)
	require.Equal(t, "documents", *db.lastPutInput.TableName)
	require.Equal(t, "attribute_not_exists(SK)", *db.lastPutInput.ConditionExpression)

	item := db.lastPutInput.Item
	require.Equal(t, "doc-1", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Comment#a", item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "user-1", item["Owner"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "hello", item["Comment"].(*types.AttributeValueMemberS).Value)
	require.Len(t, item, 5)
}

func TestPutComment_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewClient(t, db)

	err := c.PutComment(context.Background(), domain.Comment{DocumentID: "doc-1", CommentID: "Comment#a"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutComment")
}

func TestPutComment_MissingKeys(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.PutComment(context.Background(), domain.Comment{CommentID: "Comment#a"})
	require.ErrorContains(t, err, "required")
	err = c.PutComment(context.Background(), domain.Comment{DocumentID: "doc-1"})
	require.ErrorContains(t, err, "required")
	require.Nil(t, db.lastPutInput)
}

func TestDeleteComment_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.DeleteComment(context.Background(), "doc-1", "Comment#a")
	require.NoError(t, err)
	require.Equal(t, "doc-1", db.lastDelInput.Key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Comment#a", db.lastDelInput.Key["SK"].(*types.AttributeValueMemberS).Value)
	require.Nil(t, db.lastDelInput.ConditionExpression)
}

func TestDeleteComment_DynamoError(t *testing.T) {
	db := &fakeDynamo{deleteErr: errors.New("internal server error")}
	c := mustNewClient(t, db)

	err := c.DeleteComment(context.Background(), "doc-1", "Comment#a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DeleteComment")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "documents")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
