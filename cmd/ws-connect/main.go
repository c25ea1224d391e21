// Package main implements the WebSocket connection Lambda handler.
// Clients connect with a JWT and a model id; the connection is recorded
// so model change notifications can be fanned out to its watchers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"atlas-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	dynamoClient *dynamodb.Client
	validator    *auth.JWTValidator
)

// Connection represents a WebSocket connection record
type Connection struct {
	ConnectionID string
	UserID       string
	ModelID      string
	ConnectedAt  time.Time
	Endpoint     string
	TTL          int64
}

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoClient = dynamodb.NewFromConfig(cfg)

	validator, err = auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     os.Getenv("JWT_SECRET"),
		Issuer:        "atlas-backend",
		Audience:      []string{"atlas-api"},
	})
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	log.Println("WebSocket connect handler initialized")
}

// storeConnection saves the connection information to DynamoDB. The
// GSI1 key indexes connections by watched model so change notifications
// can find them with a single query.
func storeConnection(ctx context.Context, conn Connection) error {
	tableName := os.Getenv("CONNECTIONS_TABLE")
	if tableName == "" {
		tableName = "Atlas-Connections"
	}

	conn.TTL = time.Now().Add(24 * time.Hour).Unix()

	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"SK":           &types.AttributeValueMemberS{Value: "METADATA"},
		"ConnectionID": &types.AttributeValueMemberS{Value: conn.ConnectionID},
		"UserID":       &types.AttributeValueMemberS{Value: conn.UserID},
		"ModelID":      &types.AttributeValueMemberS{Value: conn.ModelID},
		"GSI1PK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("MODEL#%s", conn.ModelID)},
		"GSI1SK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"ConnectedAt":  &types.AttributeValueMemberS{Value: conn.ConnectedAt.Format(time.RFC3339)},
		"Endpoint":     &types.AttributeValueMemberS{Value: conn.Endpoint},
		"TTL":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", conn.TTL)},
	}

	_, err := dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store connection: %w", err)
	}

	log.Printf("Stored connection %s for user %s watching model %s", conn.ConnectionID, conn.UserID, conn.ModelID)
	return nil
}

// handler processes WebSocket connection requests
func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	log.Printf("WebSocket connect request from connection: %s", request.RequestContext.ConnectionID)

	token := request.QueryStringParameters["token"]
	if token == "" {
		if authHeader := request.Headers["Authorization"]; authHeader != "" {
			token = authHeader
		}
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		log.Printf("Authentication failed: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusUnauthorized,
			Body:       `{"error": "unauthorized"}`,
		}, nil
	}

	modelID := request.QueryStringParameters["model_id"]
	if modelID == "" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Body:       `{"error": "model_id is required"}`,
		}, nil
	}

	connection := Connection{
		ConnectionID: request.RequestContext.ConnectionID,
		UserID:       claims.UserID,
		ModelID:      modelID,
		ConnectedAt:  time.Now(),
		Endpoint:     fmt.Sprintf("%s/%s", request.RequestContext.DomainName, request.RequestContext.Stage),
	}

	if err := storeConnection(ctx, connection); err != nil {
		log.Printf("Failed to store connection: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error": "internal server error"}`,
		}, nil
	}

	welcomeMsg := map[string]interface{}{
		"type":         "connection_established",
		"connectionId": connection.ConnectionID,
		"modelId":      modelID,
		"timestamp":    time.Now().Unix(),
	}
	welcomeJSON, _ := json.Marshal(welcomeMsg)

	log.Printf("WebSocket connection established for user %s", claims.UserID)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(welcomeJSON),
	}, nil
}

func main() {
	lambda.Start(handler)
}
