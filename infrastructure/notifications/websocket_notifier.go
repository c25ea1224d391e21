// Package notifications pushes change notifications to connected
// WebSocket clients through the API Gateway Management API.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"atlas-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// changeMessage is the wire format sent to clients.
type changeMessage struct {
	Type       string `json:"type"`
	ModelID    string `json:"model_id"`
	ChangeType string `json:"change_type"`
	Timestamp  int64  `json:"timestamp"`
}

// WebSocketNotifier fans model change notifications out to every
// connection subscribed to the model. Connections live in a DynamoDB
// table keyed CONNECTION#<id> / METADATA with a GSI1PK of
// MODEL#<modelID> for the model each client is watching.
type WebSocketNotifier struct {
	dynamoClient *dynamodb.Client
	apiClient    *apigatewaymanagementapi.Client
	tableName    string
	indexName    string
	logger       *zap.Logger
}

// NewWebSocketNotifier creates a notifier for the given connections table.
// The endpoint is the API Gateway WebSocket management endpoint, e.g.
// "abc123.execute-api.us-east-1.amazonaws.com/prod".
func NewWebSocketNotifier(
	awsConfig aws.Config,
	dynamoClient *dynamodb.Client,
	tableName string,
	endpoint string,
	logger *zap.Logger,
) ports.Notifier {
	apiClient := apigatewaymanagementapi.NewFromConfig(awsConfig, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", endpoint))
	})

	return &WebSocketNotifier{
		dynamoClient: dynamoClient,
		apiClient:    apiClient,
		tableName:    tableName,
		indexName:    "GSI1",
		logger:       logger,
	}
}

// NotifyModelChanged tells every client watching a model to refresh
func (n *WebSocketNotifier) NotifyModelChanged(ctx context.Context, modelID string, changeType string) error {
	connectionIDs, err := n.connectionsForModel(ctx, modelID)
	if err != nil {
		return fmt.Errorf("failed to look up connections: %w", err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	message, err := json.Marshal(changeMessage{
		Type:       "model.changed",
		ModelID:    modelID,
		ChangeType: changeType,
		Timestamp:  time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	successCount := 0
	failCount := 0
	for _, connID := range connectionIDs {
		if err := n.send(ctx, connID, message); err != nil {
			n.logger.Warn("Failed to notify connection",
				zap.String("connectionId", connID),
				zap.Error(err),
			)
			failCount++
		} else {
			successCount++
		}
	}

	n.logger.Debug("Model change notification sent",
		zap.String("modelId", modelID),
		zap.String("changeType", changeType),
		zap.Int("delivered", successCount),
		zap.Int("failed", failCount),
	)

	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d notification sends failed", failCount)
	}
	return nil
}

// connectionsForModel returns the IDs of connections subscribed to a model.
func (n *WebSocketNotifier) connectionsForModel(ctx context.Context, modelID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(n.tableName),
		IndexName:              aws.String(n.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :modelpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":modelpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("MODEL#%s", modelID)},
		},
	}

	var connectionIDs []string
	paginator := dynamodb.NewQueryPaginator(n.dynamoClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if connID, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
				connectionIDs = append(connectionIDs, connID.Value)
			}
		}
	}

	return connectionIDs, nil
}

// send posts a message to one connection, pruning it if it is gone.
func (n *WebSocketNotifier) send(ctx context.Context, connectionID string, message []byte) error {
	_, err := n.apiClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         message,
	})
	if err != nil {
		var goneErr *apigwtypes.GoneException
		if errors.As(err, &goneErr) {
			n.removeStaleConnection(ctx, connectionID)
			return nil
		}
		return err
	}
	return nil
}

// removeStaleConnection deletes a closed connection's record so the next
// notification does not bother retrying it.
func (n *WebSocketNotifier) removeStaleConnection(ctx context.Context, connectionID string) {
	_, err := n.dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(n.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		n.logger.Warn("Failed to remove stale connection",
			zap.String("connectionId", connectionID),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("Removed stale connection", zap.String("connectionId", connectionID))
}

// NoopNotifier discards notifications. Used when no WebSocket endpoint
// is configured, typically in local development.
type NoopNotifier struct{}

// NotifyModelChanged implements ports.Notifier.
func (NoopNotifier) NotifyModelChanged(ctx context.Context, modelID string, changeType string) error {
	return nil
}
