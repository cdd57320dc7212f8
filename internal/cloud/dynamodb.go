package cloud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

// ErrAlertNotFound is returned when acknowledging an alert id that was never stored.
var ErrAlertNotFound = errors.New("alert not found")

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBClient stores alert history in a table keyed by alertId with a
// machineId-timestamp GSI.
type DynamoDBClient struct {
	svc   dynamoAPI
	table string
}

func NewDynamoDBClient(ctx context.Context, region, table string) (*DynamoDBClient, error) {
	cfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &DynamoDBClient{svc: dynamodb.NewFromConfig(cfg), table: table}, nil
}

// alertItem is the DynamoDB shape of domain.Alert.
type alertItem struct {
	AlertID      string  `dynamodbav:"alertId"`
	MachineID    string  `dynamodbav:"machineId"`
	Timestamp    int64   `dynamodbav:"timestamp"`
	Severity     string  `dynamodbav:"severity"`
	Type         string  `dynamodbav:"type"`
	Message      string  `dynamodbav:"message"`
	Score        float64 `dynamodbav:"score"`
	Acknowledged bool    `dynamodbav:"acknowledged"`
}

// Notify stores the alert.
func (c *DynamoDBClient) Notify(ctx context.Context, alert domain.Alert) error {
	item, err := attributevalue.MarshalMap(alertItem{
		AlertID:   alert.AlertID,
		MachineID: alert.MachineID,
		Timestamp: alert.CreatedAt.Unix(),
		Severity:  alert.Severity,
		Type:      alert.Type,
		Message:   alert.Message,
		Score:     alert.Score,
		// a re-sent alert keeps its acknowledgement
		Acknowledged: alert.Acknowledged,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// Alerts returns a machine's most recent alerts, newest first. limit <= 0 means 20.
func (c *DynamoDBClient) Alerts(ctx context.Context, machineID string, limit int32) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := c.svc.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String("machineId-timestamp-index"),
		KeyConditionExpression: aws.String("machineId = :mid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":mid": &types.AttributeValueMemberS{Value: machineID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	var items []alertItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alerts: %w", err)
	}
	alerts := make([]domain.Alert, len(items))
	for i, it := range items {
		alerts[i] = domain.Alert{
			AlertID:      it.AlertID,
			MachineID:    it.MachineID,
			Severity:     it.Severity,
			Type:         it.Type,
			Message:      it.Message,
			Score:        it.Score,
			Acknowledged: it.Acknowledged,
			CreatedAt:    time.Unix(it.Timestamp, 0).UTC(),
		}
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as handled.
func (c *DynamoDBClient) AcknowledgeAlert(ctx context.Context, alertID string) error {
	_, err := c.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"alertId": &types.AttributeValueMemberS{Value: alertID},
		},
		UpdateExpression:    aws.String("SET acknowledged = :ack, acknowledgedAt = :time"),
		ConditionExpression: aws.String("attribute_exists(alertId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ack":  &types.AttributeValueMemberBOOL{Value: true},
			":time": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
	})
	var missing *types.ConditionalCheckFailedException
	if errors.As(err, &missing) {
		return fmt.Errorf("%s: %w", alertID, ErrAlertNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}
