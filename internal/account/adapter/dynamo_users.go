package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/dynamo"
)

// Compile-time check: DynamoUserStore satisfies app.UserStore.
var _ app.UserStore = (*DynamoUserStore)(nil)

const (
	// emailIndexName is the GSI on the email attribute.
	emailIndexName = "email-index"

	// emailSentinelPrefix keys the items that reserve an email address. They
	// share the users table but carry no email attribute, so the GSI never
	// projects them.
	emailSentinelPrefix = "EMAIL#"

	conditionFailed = "ConditionalCheckFailed"
)

// userDynamoDB is a narrow, consumer-defined interface for the DynamoDB
// operations the user store needs. The *dynamodb.Client satisfies it.
type userDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamo.TransactWriteItemsInput, optFns ...func(*dynamo.Options)) (*dynamo.TransactWriteItemsOutput, error)
}

// userItem is the DynamoDB item shape for the users table.
type userItem struct {
	UserID       string `dynamodbav:"user_id"`
	Name         string `dynamodbav:"name"`
	Email        string `dynamodbav:"email"`
	Phone        string `dynamodbav:"phone,omitempty"`
	PasswordHash string `dynamodbav:"password_hash"`
	Role         string `dynamodbav:"role"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

// emailSentinel reserves an email for one user.
type emailSentinel struct {
	UserID  string `dynamodbav:"user_id"`
	OwnerID string `dynamodbav:"owner_id"`
}

// DynamoUserStore persists users in DynamoDB. Email uniqueness is enforced by
// writing a sentinel item in the same transaction as the user.
type DynamoUserStore struct {
	db        userDynamoDB
	tableName string
	indexName string
	timeout   time.Duration
}

// NewDynamoUserStore creates a DynamoUserStore backed by the given client.
func NewDynamoUserStore(db userDynamoDB, tableName string, timeout time.Duration) *DynamoUserStore {
	if timeout <= 0 {
		timeout = domain.DynamoDBTimeout
	}
	return &DynamoUserStore{
		db:        db,
		tableName: tableName,
		indexName: emailIndexName,
		timeout:   timeout,
	}
}

// Create writes the user and its email sentinel atomically. Returns
// domain.ErrAlreadyExists if either already exists.
func (s *DynamoUserStore) Create(ctx context.Context, user app.UserRecord) error {
	ctx, span := tracer.Start(ctx, "dynamo.users.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "TransactWriteItems"),
	)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userPut, err := s.putItem(toUserItem(user), notExists())
	if err != nil {
		return err
	}
	sentinelPut, err := s.putItem(emailSentinel{UserID: emailSentinelPrefix + user.Email, OwnerID: user.UserID}, notExists())
	if err != nil {
		return err
	}

	_, err = s.db.TransactWriteItems(ctx, &dynamo.TransactWriteItemsInput{
		TransactItems: []dynamo.TransactWriteItem{userPut, sentinelPut},
	})
	if err != nil {
		if reasons, ok := dynamo.CancellationReasons(err); ok && containsReason(reasons, conditionFailed) {
			return fmt.Errorf("user store: create: %w", domain.ErrAlreadyExists)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id using a strongly consistent read.
// Returns domain.ErrNotFound when no user exists for the given id.
func (s *DynamoUserStore) GetByID(ctx context.Context, userID string) (*app.UserRecord, error) {
	ctx, span := tracer.Start(ctx, "dynamo.users.get_by_id")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("user store: get by id: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user store: get by id: %w", domain.ErrNotFound)
	}

	var item userItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("user store: unmarshal user: %w", err)
	}
	return fromUserItem(item)
}

// FindByEmail looks up a user via the email-index GSI, then fetches the full
// record with a consistent GetItem read.
func (s *DynamoUserStore) FindByEmail(ctx context.Context, email string) (*app.UserRecord, error) {
	ctx, span := tracer.Start(ctx, "dynamo.users.find_by_email")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "Query"),
	)

	expr, err := dynamo.NewExpressionBuilder().
		WithKeyCondition(dynamo.Key("email").Equal(dynamo.Value(email))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("user store: build key condition: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.db.Query(queryCtx, &dynamo.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 &s.indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     dynamo.Int32(1),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("user store: find by email query: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user store: find by email: %w", domain.ErrNotFound)
	}

	var projected struct {
		UserID string `dynamodbav:"user_id"`
	}
	if err := dynamo.UnmarshalMap(out.Items[0], &projected); err != nil {
		return nil, fmt.Errorf("user store: unmarshal gsi projection: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("user store: find by email: %w", err)
	}
	return s.GetByID(ctx, projected.UserID)
}

// Update overwrites an existing user. When the email changes the old
// sentinel is released and a new one claimed in the same transaction.
func (s *DynamoUserStore) Update(ctx context.Context, user app.UserRecord) error {
	ctx, span := tracer.Start(ctx, "dynamo.users.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "TransactWriteItems"),
	)

	current, err := s.GetByID(ctx, user.UserID)
	if err != nil {
		return err
	}
	user.CreatedAt = current.CreatedAt

	userPut, err := s.putItem(toUserItem(user), exists())
	if err != nil {
		return err
	}
	items := []dynamo.TransactWriteItem{userPut}
	if current.Email != user.Email {
		release, err := s.deleteSentinel(current.Email, user.UserID)
		if err != nil {
			return err
		}
		claim, err := s.putItem(emailSentinel{UserID: emailSentinelPrefix + user.Email, OwnerID: user.UserID}, notExists())
		if err != nil {
			return err
		}
		items = append(items, release, claim)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.TransactWriteItems(ctx, &dynamo.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if reasons, ok := dynamo.CancellationReasons(err); ok {
			switch {
			case len(reasons) > 2 && reasons[2] == conditionFailed:
				return fmt.Errorf("user store: update: email taken: %w", domain.ErrAlreadyExists)
			case containsReason(reasons, conditionFailed):
				return fmt.Errorf("user store: update: %w", domain.ErrNotFound)
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: update: %w", err)
	}
	return nil
}

// Delete removes the user and releases its email.
func (s *DynamoUserStore) Delete(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "dynamo.users.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "TransactWriteItems"),
	)

	current, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	userDelete, err := s.deleteItem(userID, exists())
	if err != nil {
		return err
	}
	release, err := s.deleteSentinel(current.Email, userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.TransactWriteItems(ctx, &dynamo.TransactWriteItemsInput{
		TransactItems: []dynamo.TransactWriteItem{userDelete, release},
	})
	if err != nil {
		if reasons, ok := dynamo.CancellationReasons(err); ok && containsReason(reasons, conditionFailed) {
			return fmt.Errorf("user store: delete: %w", domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: delete: %w", err)
	}
	return nil
}

func (s *DynamoUserStore) putItem(v any, cond dynamo.ConditionBuilder) (dynamo.TransactWriteItem, error) {
	av, err := dynamo.MarshalMap(v)
	if err != nil {
		return dynamo.TransactWriteItem{}, fmt.Errorf("user store: marshal item: %w", err)
	}
	expr, err := dynamo.NewExpressionBuilder().WithCondition(cond).Build()
	if err != nil {
		return dynamo.TransactWriteItem{}, fmt.Errorf("user store: build condition: %w", err)
	}
	return dynamo.TransactWriteItem{Put: &dynamo.Put{
		TableName:                 &s.tableName,
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

func (s *DynamoUserStore) deleteItem(key string, cond dynamo.ConditionBuilder) (dynamo.TransactWriteItem, error) {
	expr, err := dynamo.NewExpressionBuilder().WithCondition(cond).Build()
	if err != nil {
		return dynamo.TransactWriteItem{}, fmt.Errorf("user store: build condition: %w", err)
	}
	return dynamo.TransactWriteItem{Delete: &dynamo.Delete{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: key},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

// deleteSentinel releases email only if it is still owned by ownerID.
func (s *DynamoUserStore) deleteSentinel(email, ownerID string) (dynamo.TransactWriteItem, error) {
	return s.deleteItem(emailSentinelPrefix+email, dynamo.Name("owner_id").Equal(dynamo.Value(ownerID)))
}

func notExists() dynamo.ConditionBuilder { return dynamo.AttributeNotExists(dynamo.Name("user_id")) }
func exists() dynamo.ConditionBuilder    { return dynamo.AttributeExists(dynamo.Name("user_id")) }

func containsReason(reasons []string, code string) bool {
	for _, r := range reasons {
		if r == code {
			return true
		}
	}
	return false
}

func toUserItem(u app.UserRecord) userItem {
	return userItem{
		UserID:       u.UserID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func fromUserItem(item userItem) (*app.UserRecord, error) {
	created, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user store: parse created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("user store: parse updated_at: %w", err)
	}
	return &app.UserRecord{
		UserID:       item.UserID,
		Name:         item.Name,
		Email:        item.Email,
		Phone:        item.Phone,
		PasswordHash: item.PasswordHash,
		Role:         domain.Role(item.Role),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}
