package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo satisfies dynamoAPI with function hooks; unhooked calls return
// empty results.
type fakeDynamo struct {
	queryFn  func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	updateFn func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}
func (f *fakeDynamo) PutItem(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryFn != nil {
		return f.queryFn(in)
	}
	return &dynamodb.QueryOutput{}, nil
}
func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.updateFn != nil {
		return f.updateFn(in)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}
func (f *fakeDynamo) TransactWriteItems(_ context.Context, _ *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func sessionItem(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: sessionID},
		"account_id": &types.AttributeValueMemberS{Value: "acc1"},
	}
}

func TestDisableByAccount_PaginatesAllSessions(t *testing.T) {
	pageKey := map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: "sess1"},
	}
	queries := 0
	var secondStartKey map[string]types.AttributeValue
	var disabled []string

	fake := &fakeDynamo{
		queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			queries++
			switch queries {
			case 1:
				require.Nil(t, in.ExclusiveStartKey)
				return &dynamodb.QueryOutput{
					Items:            []map[string]types.AttributeValue{sessionItem("sess1")},
					LastEvaluatedKey: pageKey,
				}, nil
			default:
				secondStartKey = in.ExclusiveStartKey
				return &dynamodb.QueryOutput{
					Items: []map[string]types.AttributeValue{sessionItem("sess2")},
				}, nil
			}
		},
		updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			sid := in.Key["session_id"].(*types.AttributeValueMemberS).Value
			disabled = append(disabled, sid)
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}

	repo := NewSessionRepo(fake, "sessions")
	require.NoError(t, repo.DisableByAccount(context.Background(), "acc1"))

	// Sessions on the second result page are disabled too.
	assert.Equal(t, 2, queries)
	assert.Equal(t, pageKey, secondStartKey)
	assert.Equal(t, []string{"sess1", "sess2"}, disabled)
}

func TestDisableByAccount_SinglePage(t *testing.T) {
	queries := 0
	var disabled []string
	fake := &fakeDynamo{
		queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			queries++
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{sessionItem("sess1")},
			}, nil
		},
		updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			disabled = append(disabled, in.Key["session_id"].(*types.AttributeValueMemberS).Value)
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}

	repo := NewSessionRepo(fake, "sessions")
	require.NoError(t, repo.DisableByAccount(context.Background(), "acc1"))
	assert.Equal(t, 1, queries)
	assert.Equal(t, []string{"sess1"}, disabled)
}
