package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-account-api/internal/domain"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
//
// Uniqueness of username and email is enforced at write time: Create puts the
// account item together with two guard items (account_id = "uniq#username#..."
// and "uniq#email#...") in a single TransactWriteItems call, each conditioned
// on attribute_not_exists. Two racing signups for the same name therefore
// resolve inside DynamoDB — exactly one transaction commits.
type AccountRepo struct {
	client    dynamoAPI
	tableName string
}

func NewAccountRepo(client dynamoAPI, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

func usernameGuard(username string) string { return "uniq#username#" + username }
func emailGuard(email string) string       { return "uniq#email#" + email }

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	notExists := aws.String("attribute_not_exists(account_id)")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: notExists,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                strKey("account_id", usernameGuard(a.Username)),
				ConditionExpression: notExists,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                strKey("account_id", emailGuard(a.Email)),
				ConditionExpression: notExists,
			}},
		},
	})
	if err != nil {
		return mapCreateCancellation(err, a.Username, a.Email)
	}
	return nil
}

// mapCreateCancellation translates a cancelled Create transaction into the
// domain error for the guard that rejected it. Reasons are positional:
// [0] account item, [1] username guard, [2] email guard; when both guards
// fail, the username conflict is reported.
func mapCreateCancellation(err error, username, email string) error {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) && len(tce.CancellationReasons) == 3 {
		if conditionFailed(tce.CancellationReasons[1]) {
			return fmt.Errorf("username %q: %w", username, domain.ErrUsernameTaken)
		}
		if conditionFailed(tce.CancellationReasons[2]) {
			return fmt.Errorf("email %q: %w", email, domain.ErrEmailTaken)
		}
	}
	return fmt.Errorf("create account: %w", err)
}

func conditionFailed(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *AccountRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}
