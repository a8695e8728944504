package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"homedash-backend/application/ports"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/pkg/observability"
	"homedash-backend/pkg/utils"
)

// LayoutRepository persists layout documents in DynamoDB, one item per
// user. The whole document travels as a JSON blob; DynamoDB is a dumb
// store here and every structural rule lives in the domain layer.
type LayoutRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewLayoutRepository creates a new LayoutRepository
func NewLayoutRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.LayoutRepository {
	return &LayoutRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// layoutItem is the DynamoDB item structure for a layout document. The
// metadata columns exist for console inspection and future indexes; the
// Document blob is the source of truth.
type layoutItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	EntityType    string `dynamodbav:"EntityType"`
	UserID        string `dynamodbav:"UserID"`
	SchemaVersion int    `dynamodbav:"SchemaVersion"`
	Revision      int    `dynamodbav:"Revision"`
	Mode          string `dynamodbav:"Mode"`
	WidgetCount   int    `dynamodbav:"WidgetCount"`
	Document      string `dynamodbav:"Document"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
}

func layoutKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		"SK": &types.AttributeValueMemberS{Value: "LAYOUT"},
	}
}

// Load retrieves the layout document for a user
func (r *LayoutRepository) Load(ctx context.Context, userID string) (aggregates.Snapshot, error) {
	var snap aggregates.Snapshot

	err := observability.TraceDynamoDBOperation(ctx, "GetItem", r.tableName, func(ctx context.Context) error {
		input := &dynamodb.GetItemInput{
			TableName:      aws.String(r.tableName),
			Key:            layoutKey(userID),
			ConsistentRead: aws.Bool(true),
		}

		result, err := r.client.GetItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to get layout: %w", err)
		}
		if result.Item == nil {
			return ports.ErrLayoutNotFound
		}

		var item layoutItem
		if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
			return fmt.Errorf("failed to unmarshal layout item: %w", err)
		}
		if err := json.Unmarshal([]byte(item.Document), &snap); err != nil {
			return fmt.Errorf("failed to decode layout document: %w", err)
		}
		return nil
	})
	if err != nil {
		return aggregates.Snapshot{}, err
	}

	r.logger.Debug("Loaded layout from DynamoDB",
		zap.String("userId", userID),
		zap.Int("schemaVersion", snap.SchemaVersion),
		zap.Int("revision", snap.Revision),
	)
	return snap, nil
}

// Save stores the full layout document, replacing any prior record
func (r *LayoutRepository) Save(ctx context.Context, snapshot aggregates.Snapshot) error {
	av, err := r.marshalItem(snapshot)
	if err != nil {
		return err
	}

	err = observability.TraceDynamoDBOperation(ctx, "PutItem", r.tableName, func(ctx context.Context) error {
		input := &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		}
		if _, err := r.client.PutItem(ctx, input); err != nil {
			return fmt.Errorf("failed to save layout: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save layout to DynamoDB",
			zap.String("userId", snapshot.UserID),
			zap.Error(err),
		)
		return err
	}

	r.logger.Debug("Saved layout to DynamoDB",
		zap.String("userId", snapshot.UserID),
		zap.Int("revision", snapshot.Revision),
	)
	return nil
}

// Create stores the document only if the user has none yet. The
// condition turns concurrent first sessions into exactly one winner;
// losers get ErrLayoutExists and adopt the stored layout.
func (r *LayoutRepository) Create(ctx context.Context, snapshot aggregates.Snapshot) error {
	av, err := r.marshalItem(snapshot)
	if err != nil {
		return err
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build create condition: %w", err)
	}

	err = observability.TraceDynamoDBOperation(ctx, "PutItem", r.tableName, func(ctx context.Context) error {
		input := &dynamodb.PutItemInput{
			TableName:                 aws.String(r.tableName),
			Item:                      av,
			ConditionExpression:       cond.Condition(),
			ExpressionAttributeNames:  cond.Names(),
			ExpressionAttributeValues: cond.Values(),
		}

		if _, err := r.client.PutItem(ctx, input); err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				return ports.ErrLayoutExists
			}
			return fmt.Errorf("failed to create layout: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Created layout in DynamoDB",
		zap.String("userId", snapshot.UserID),
		zap.Int("widgetCount", len(snapshot.Widgets)),
	)
	return nil
}

func (r *LayoutRepository) marshalItem(snapshot aggregates.Snapshot) (map[string]types.AttributeValue, error) {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout document: %w", err)
	}

	item := layoutItem{
		PK:            fmt.Sprintf("USER#%s", snapshot.UserID),
		SK:            "LAYOUT",
		EntityType:    "LAYOUT",
		UserID:        snapshot.UserID,
		SchemaVersion: snapshot.SchemaVersion,
		Revision:      snapshot.Revision,
		Mode:          string(snapshot.Mode),
		WidgetCount:   len(snapshot.Widgets),
		Document:      string(doc),
		CreatedAt:     utils.FormatRFC3339(snapshot.CreatedAt),
		UpdatedAt:     utils.FormatRFC3339(snapshot.UpdatedAt),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal layout item: %w", err)
	}
	return av, nil
}
