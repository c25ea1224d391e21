package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"atlas-backend/application/ports"
	"atlas-backend/domain/model"
	apperrors "atlas-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ModelRepository implements ports.ModelRepository on a single DynamoDB
// table. Layout:
//
//	USER#<userID>  / MODEL#<modelID>    model metadata (GSI1 by model id)
//	MODEL#<modelID> / ELEMENT#<id>      one item per element
//	MODEL#<modelID> / REL#<id>          one item per relationship
//
// Relationship items carry an Ord attribute so loads rebuild the model's
// insertion order and analysis results stay deterministic across restarts.
type ModelRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewModelRepository creates a new ModelRepository
func NewModelRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ModelRepository {
	return &ModelRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type modelItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	GSI1PK            string `dynamodbav:"GSI1PK"`
	GSI1SK            string `dynamodbav:"GSI1SK"`
	EntityType        string `dynamodbav:"EntityType"`
	ModelID           string `dynamodbav:"ModelID"`
	UserID            string `dynamodbav:"UserID"`
	Name              string `dynamodbav:"Name"`
	Notation          string `dynamodbav:"Notation"`
	ElementCount      int    `dynamodbav:"ElementCount"`
	RelationshipCount int    `dynamodbav:"RelationshipCount"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
	UpdatedAt         string `dynamodbav:"UpdatedAt"`
	Version           int    `dynamodbav:"Version"`
}

type elementItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	EntityType string            `dynamodbav:"EntityType"`
	ElementID  string            `dynamodbav:"ElementID"`
	Name       string            `dynamodbav:"Name"`
	Type       string            `dynamodbav:"Type"`
	Layer      string            `dynamodbav:"Layer"`
	Properties map[string]string `dynamodbav:"Properties,omitempty"`
}

type relationshipItem struct {
	PK             string                 `dynamodbav:"PK"`
	SK             string                 `dynamodbav:"SK"`
	EntityType     string                 `dynamodbav:"EntityType"`
	RelationshipID string                 `dynamodbav:"RelationshipID"`
	Type           string                 `dynamodbav:"Type"`
	SourceID       string                 `dynamodbav:"SourceID"`
	TargetID       string                 `dynamodbav:"TargetID"`
	Attrs          map[string]interface{} `dynamodbav:"Attrs,omitempty"`
	Ord            int64                  `dynamodbav:"Ord"`
}

func modelMetaKeys(userID string, id model.ModelID) (string, string) {
	return fmt.Sprintf("USER#%s", userID), fmt.Sprintf("MODEL#%s", id.String())
}

func elementKeys(modelID model.ModelID, id model.ElementID) (string, string) {
	return fmt.Sprintf("MODEL#%s", modelID.String()), fmt.Sprintf("ELEMENT#%s", id.String())
}

func relationshipKeys(modelID model.ModelID, id model.RelationshipID) (string, string) {
	return fmt.Sprintf("MODEL#%s", modelID.String()), fmt.Sprintf("REL#%s", id.String())
}

// Save persists a model with its elements and relationships
func (r *ModelRepository) Save(ctx context.Context, m *model.Model) error {
	pk, sk := modelMetaKeys(m.UserID(), m.ID())
	meta := modelItem{
		PK:                pk,
		SK:                sk,
		GSI1PK:            fmt.Sprintf("MODELID#%s", m.ID().String()),
		GSI1SK:            "METADATA",
		EntityType:        "MODEL",
		ModelID:           m.ID().String(),
		UserID:            m.UserID(),
		Name:              m.Name(),
		Notation:          m.Notation(),
		ElementCount:      m.ElementCount(),
		RelationshipCount: m.RelationshipCount(),
		CreatedAt:         m.CreatedAt().Format(time.RFC3339),
		UpdatedAt:         m.UpdatedAt().Format(time.RFC3339),
		Version:           m.Version(),
	}

	av, err := attributevalue.MarshalMap(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	writes := []types.WriteRequest{{PutRequest: &types.PutRequest{Item: av}}}

	for _, el := range m.Elements() {
		item, err := r.marshalElement(m.ID(), el)
		if err != nil {
			return err
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	// Ord follows the model's insertion order. Relationships saved later
	// through SaveRelationship get a wall-clock Ord, which always sorts
	// after these positional ones.
	for i, rel := range m.Relationships() {
		item, err := r.marshalRelationship(m.ID(), rel, int64(i))
		if err != nil {
			return err
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	r.logger.Debug("Model saved",
		zap.String("modelID", m.ID().String()),
		zap.String("userID", m.UserID()),
		zap.Int("elementCount", m.ElementCount()),
		zap.Int("relationshipCount", m.RelationshipCount()),
	)

	return nil
}

// GetByID retrieves a fully loaded model by its ID
func (r *ModelRepository) GetByID(ctx context.Context, id model.ModelID) (*model.Model, error) {
	meta, err := r.getMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := model.ReconstructModel(meta.ModelID, meta.UserID, meta.Name, meta.Notation, meta.CreatedAt, meta.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct model: %w", err)
	}

	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("MODEL#%s", id.String())},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load model contents: %w", err)
	}

	var rels []relationshipItem
	for _, raw := range items {
		entityType := ""
		if v, ok := raw["EntityType"].(*types.AttributeValueMemberS); ok {
			entityType = v.Value
		}
		switch entityType {
		case "ELEMENT":
			var item elementItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal element item", zap.Error(err))
				continue
			}
			m.RestoreElement(&model.Element{
				ID:         model.ElementID(item.ElementID),
				Name:       item.Name,
				Type:       item.Type,
				Layer:      model.Layer(item.Layer),
				Properties: item.Properties,
			})
		case "RELATIONSHIP":
			var item relationshipItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal relationship item", zap.Error(err))
				continue
			}
			rels = append(rels, item)
		}
	}

	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Ord < rels[j].Ord })
	for _, item := range rels {
		m.RestoreRelationship(&model.Relationship{
			ID:       model.RelationshipID(item.RelationshipID),
			Type:     item.Type,
			SourceID: model.ElementID(item.SourceID),
			TargetID: model.ElementID(item.TargetID),
			Attrs:    item.Attrs,
		})
	}

	return m, nil
}

// GetByUserID retrieves all models for a user (metadata only)
func (r *ModelRepository) GetByUserID(ctx context.Context, userID string) ([]*model.Model, error) {
	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			":sk": &types.AttributeValueMemberS{Value: "MODEL#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	models := make([]*model.Model, 0, len(items))
	for _, raw := range items {
		var item modelItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal model item", zap.Error(err))
			continue
		}
		m, err := model.ReconstructModel(item.ModelID, item.UserID, item.Name, item.Notation, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			r.logger.Warn("Failed to reconstruct model from item",
				zap.String("modelID", item.ModelID),
				zap.Error(err))
			continue
		}
		models = append(models, m)
	}

	return models, nil
}

// SaveElement persists a single element of a model
func (r *ModelRepository) SaveElement(ctx context.Context, modelID model.ModelID, el *model.Element) error {
	item, err := r.marshalElement(modelID, el)
	if err != nil {
		return err
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save element: %w", err)
	}

	return r.touchMetadata(ctx, modelID)
}

// DeleteElement removes an element and its relationships
func (r *ModelRepository) DeleteElement(ctx context.Context, modelID model.ModelID, id model.ElementID) error {
	// Relationships touching the element go with it, matching the
	// aggregate's cascade.
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(fmt.Sprintf("MODEL#%s", modelID.String()))).
			And(expression.Key("SK").BeginsWith("REL#"))).
		WithFilter(expression.Name("SourceID").Equal(expression.Value(id.String())).
			Or(expression.Name("TargetID").Equal(expression.Value(id.String())))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build relationship query: %w", err)
	}

	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to find element relationships: %w", err)
	}

	pk, sk := elementKeys(modelID, id)
	writes := []types.WriteRequest{{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}}}}
	for _, raw := range items {
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
			"PK": raw["PK"],
			"SK": raw["SK"],
		}}})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}

	return r.touchMetadata(ctx, modelID)
}

// SaveRelationship persists a single relationship of a model
func (r *ModelRepository) SaveRelationship(ctx context.Context, modelID model.ModelID, rel *model.Relationship) error {
	item, err := r.marshalRelationship(modelID, rel, time.Now().UnixNano())
	if err != nil {
		return err
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}

	return r.touchMetadata(ctx, modelID)
}

// DeleteRelationship removes a relationship
func (r *ModelRepository) DeleteRelationship(ctx context.Context, modelID model.ModelID, id model.RelationshipID) error {
	pk, sk := relationshipKeys(modelID, id)
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}

	return r.touchMetadata(ctx, modelID)
}

// Delete removes a model and everything it contains
func (r *ModelRepository) Delete(ctx context.Context, id model.ModelID) error {
	meta, err := r.getMetadata(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get model for deletion: %w", err)
	}

	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("MODEL#%s", id.String())},
		},
		ProjectionExpression: aws.String("PK, SK"),
	})
	if err != nil {
		return fmt.Errorf("failed to list model contents: %w", err)
	}

	pk, sk := modelMetaKeys(meta.UserID, id)
	writes := []types.WriteRequest{{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}}}}
	for _, raw := range items {
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
			"PK": raw["PK"],
			"SK": raw["SK"],
		}}})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	r.logger.Info("Model deleted",
		zap.String("modelID", id.String()),
		zap.String("userID", meta.UserID),
		zap.Int("itemCount", len(writes)),
	)

	return nil
}

func (r *ModelRepository) getMetadata(ctx context.Context, id model.ModelID) (*modelItem, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("MODELID#%s", id.String())},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("model %s", id.String()))
	}

	var item modelItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	return &item, nil
}

func (r *ModelRepository) touchMetadata(ctx context.Context, id model.ModelID) error {
	meta, err := r.getMetadata(ctx, id)
	if err != nil {
		return err
	}

	pk, sk := modelMetaKeys(meta.UserID, id)
	if _, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET UpdatedAt = :updatedAt ADD Version :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":updatedAt": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
			":one":       &types.AttributeValueMemberN{Value: "1"},
		},
	}); err != nil {
		return fmt.Errorf("failed to update model metadata: %w", err)
	}
	return nil
}

func (r *ModelRepository) marshalElement(modelID model.ModelID, el *model.Element) (map[string]types.AttributeValue, error) {
	pk, sk := elementKeys(modelID, el.ID)
	av, err := attributevalue.MarshalMap(elementItem{
		PK:         pk,
		SK:         sk,
		EntityType: "ELEMENT",
		ElementID:  el.ID.String(),
		Name:       el.Name,
		Type:       el.Type,
		Layer:      string(el.Layer),
		Properties: el.Properties,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal element: %w", err)
	}
	return av, nil
}

func (r *ModelRepository) marshalRelationship(modelID model.ModelID, rel *model.Relationship, ord int64) (map[string]types.AttributeValue, error) {
	pk, sk := relationshipKeys(modelID, rel.ID)
	av, err := attributevalue.MarshalMap(relationshipItem{
		PK:             pk,
		SK:             sk,
		EntityType:     "RELATIONSHIP",
		RelationshipID: rel.ID.String(),
		Type:           rel.Type,
		SourceID:       rel.SourceID.String(),
		TargetID:       rel.TargetID.String(),
		Attrs:          rel.Attrs,
		Ord:            ord,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationship: %w", err)
	}
	return av, nil
}

func (r *ModelRepository) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// batchWrite flushes write requests in chunks of 25, retrying any
// unprocessed items DynamoDB hands back.
func (r *ModelRepository) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	const batchSize = 25
	for start := 0; start < len(writes); start += batchSize {
		end := start + batchSize
		if end > len(writes) {
			end = len(writes)
		}

		pending := writes[start:end]
		for len(pending) > 0 {
			result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: pending},
			})
			if err != nil {
				return err
			}
			pending = result.UnprocessedItems[r.tableName]
		}
	}
	return nil
}
