// Package dynamo provides the shared DynamoDB client factory. Adapters use
// the re-exported types and helpers defined here instead of importing the
// SDK service package directly.
package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/roomshare/roomshare-api/internal/awsconf"
)

// Client wraps the AWS DynamoDB SDK client.
// Adapters access the underlying SDK client via the DB field.
type Client struct {
	DB *dynamodb.Client
}

// NewClient creates a DynamoDB client. An endpoint override in cfg points the
// client at LocalStack.
func NewClient(ctx context.Context, cfg awsconf.Config) (*Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{DB: dynamodb.NewFromConfig(awsCfg)}, nil
}

// Operation types used by the credential store.
type (
	GetItemInput     = dynamodb.GetItemInput
	GetItemOutput    = dynamodb.GetItemOutput
	PutItemInput     = dynamodb.PutItemInput
	PutItemOutput    = dynamodb.PutItemOutput
	QueryInput       = dynamodb.QueryInput
	QueryOutput      = dynamodb.QueryOutput
	UpdateItemInput  = dynamodb.UpdateItemInput
	UpdateItemOutput = dynamodb.UpdateItemOutput
	DeleteItemInput  = dynamodb.DeleteItemInput
	DeleteItemOutput = dynamodb.DeleteItemOutput
)

// Transaction types.
type (
	TransactWriteItemsInput  = dynamodb.TransactWriteItemsInput
	TransactWriteItemsOutput = dynamodb.TransactWriteItemsOutput
	TransactWriteItem        = types.TransactWriteItem
	Put                      = types.Put
	Delete                   = types.Delete
)

// Attribute value types.
type (
	AttributeValue        = types.AttributeValue
	AttributeValueMemberS = types.AttributeValueMemberS
	AttributeValueMemberN = types.AttributeValueMemberN
)

// Expression types.
type (
	Expression          = expression.Expression
	ConditionBuilder    = expression.ConditionBuilder
	UpdateBuilder       = expression.UpdateBuilder
	KeyConditionBuilder = expression.KeyConditionBuilder
)

// Options is the DynamoDB client options type, re-exported so adapter
// interfaces can declare optFns variadic params.
type Options = dynamodb.Options

// ReturnValueAllNew asks UpdateItem to return the item after the update.
const ReturnValueAllNew = types.ReturnValueAllNew

// Expression builders.
var (
	NewExpressionBuilder = expression.NewBuilder
	Name                 = expression.Name
	Value                = expression.Value
	Key                  = expression.Key
	AttributeNotExists   = expression.AttributeNotExists
	AttributeExists      = expression.AttributeExists
	Set                  = expression.Set
)

// Bool returns a pointer to a bool value.
var Bool = aws.Bool

// String returns a pointer to a string value.
var String = aws.String

// Int32 returns a pointer to an int32 value.
var Int32 = aws.Int32

// MarshalMap serializes a Go value into a DynamoDB attribute value map.
var MarshalMap = attributevalue.MarshalMap

// UnmarshalMap deserializes a DynamoDB attribute value map into a Go value.
var UnmarshalMap = attributevalue.UnmarshalMap

// IsConditionalCheckFailed reports whether err is a DynamoDB
// ConditionalCheckFailedException.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// ErrConditionalCheckFailed returns a ConditionalCheckFailedException for
// adapter tests. DynamoDB is the only real source of this error.
func ErrConditionalCheckFailed() error {
	return &types.ConditionalCheckFailedException{
		Message: aws.String("The conditional request failed"),
	}
}

// ErrTransactionCanceled returns a TransactionCanceledException with one
// reason code per item ("" for items that passed), for adapter tests.
func ErrTransactionCanceled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, code := range codes {
		if code != "" {
			reasons[i] = types.CancellationReason{Code: aws.String(code)}
		}
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

// CancellationReasons reports whether err is a TransactionCanceledException
// and, if so, returns its per-item reason codes.
func CancellationReasons(err error) ([]string, bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	reasons := make([]string, len(tce.CancellationReasons))
	for i, r := range tce.CancellationReasons {
		if r.Code != nil {
			reasons[i] = *r.Code
		}
	}
	return reasons, true
}

// IsThrottled reports whether err is a throughput or request-limit error
// that callers may treat as transient.
func IsThrottled(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	return errors.As(err, &pte) || errors.As(err, &rle)
}
