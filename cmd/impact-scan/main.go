// Package main implements the Lambda handler for impact scanning.
// After a structural change it walks the model's incoming edges from
// the changed element and publishes the set of dependents, so reviews
// and dashboards see what a change touches without asking the API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"atlas-backend/application/ports"
	"atlas-backend/domain/analysis"
	"atlas-backend/domain/events"
	"atlas-backend/domain/model"
	"atlas-backend/infrastructure/config"
	"atlas-backend/infrastructure/di"
	"atlas-backend/pkg/observability"
)

var (
	modelRepo ports.ModelRepository
	publisher ports.EventBus
	metrics   *observability.Emitter
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	modelRepo = container.ModelRepo
	publisher = container.EventBus
	metrics = container.Emitter

	log.Println("Impact-scan handler initialized successfully")
}

// ScanRequest represents the input for an impact scan
type ScanRequest struct {
	ModelID     string `json:"model_id"`
	ElementID   string `json:"element_id"`
	TriggerType string `json:"trigger_type,omitempty"`
	MaxDepth    int    `json:"max_depth,omitempty"`
}

// ScanResponse represents the computed impact set
type ScanResponse struct {
	ModelID     string   `json:"model_id"`
	ElementID   string   `json:"element_id"`
	ImpactedIDs []string `json:"impacted_ids"`
	TotalFound  int      `json:"total_found"`
}

// HandleScan computes the elements that depend on the changed one by
// walking incoming edges, then publishes the result.
func HandleScan(ctx context.Context, request ScanRequest) (*ScanResponse, error) {
	log.Printf("Scanning impact of element %s in model %s", request.ElementID, request.ModelID)
	start := time.Now()

	if request.ModelID == "" || request.ElementID == "" {
		return nil, fmt.Errorf("model_id and element_id are required")
	}
	if request.MaxDepth <= 0 {
		request.MaxDepth = analysis.MaxHopLimit
	}

	m, err := modelRepo.GetByID(ctx, model.ModelID(request.ModelID))
	if err != nil {
		metrics.RecordImpactScan(ctx, request.TriggerType, 0, time.Since(start), err)
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	patch := analysis.ExpandFromNode(m, analysis.AdapterForNotation(m.Notation()), analysis.ExpandRequest{
		NodeID:    request.ElementID,
		Direction: analysis.DirectionIncoming,
		Depth:     request.MaxDepth,
	})

	impacted := make([]string, 0, len(patch.Nodes))
	for _, node := range patch.Nodes {
		if node.ID != request.ElementID {
			impacted = append(impacted, node.ID)
		}
	}

	report := events.ImpactAssessed{
		BaseEvent: events.BaseEvent{
			AggregateID: request.ModelID,
			EventType:   "analysis.impact_assessed",
			Timestamp:   time.Now(),
			Version:     1,
		},
		ModelID:     request.ModelID,
		TriggerID:   request.ElementID,
		TriggerType: request.TriggerType,
		ImpactedIDs: impacted,
	}
	if err := publisher.Publish(ctx, report); err != nil {
		log.Printf("Failed to publish impact report: %v", err)
	}

	metrics.RecordImpactScan(ctx, request.TriggerType, len(impacted), time.Since(start), nil)
	log.Printf("Found %d impacted elements for %s", len(impacted), request.ElementID)

	return &ScanResponse{
		ModelID:     request.ModelID,
		ElementID:   request.ElementID,
		ImpactedIDs: impacted,
		TotalFound:  len(impacted),
	}, nil
}

// handler dispatches on event shape: EventBridge change events trigger
// automatic scans, direct invocations carry a ScanRequest.
func handler(ctx context.Context, event json.RawMessage) error {
	var cloudWatchEvent awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &cloudWatchEvent); err == nil && cloudWatchEvent.DetailType != "" {
		switch cloudWatchEvent.DetailType {
		case "model.element_removed", "model.element_updated":
			var detail struct {
				ModelID   string `json:"model_id"`
				ElementID string `json:"element_id"`
			}
			if err := json.Unmarshal(cloudWatchEvent.Detail, &detail); err != nil {
				return fmt.Errorf("failed to parse %s event: %w", cloudWatchEvent.DetailType, err)
			}
			_, err := HandleScan(ctx, ScanRequest{
				ModelID:     detail.ModelID,
				ElementID:   detail.ElementID,
				TriggerType: cloudWatchEvent.DetailType,
			})
			return err
		case "model.relationship_added":
			var detail struct {
				ModelID  string `json:"model_id"`
				TargetID string `json:"target_id"`
			}
			if err := json.Unmarshal(cloudWatchEvent.Detail, &detail); err != nil {
				return fmt.Errorf("failed to parse %s event: %w", cloudWatchEvent.DetailType, err)
			}
			_, err := HandleScan(ctx, ScanRequest{
				ModelID:     detail.ModelID,
				ElementID:   detail.TargetID,
				TriggerType: cloudWatchEvent.DetailType,
			})
			return err
		default:
			log.Printf("Ignoring event type %s", cloudWatchEvent.DetailType)
			return nil
		}
	}

	var request ScanRequest
	if err := json.Unmarshal(event, &request); err == nil && request.ModelID != "" {
		_, err := HandleScan(ctx, request)
		return err
	}

	return fmt.Errorf("unable to parse event")
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting impact-scan Lambda")
		lambda.Start(handler)
		return
	}

	// Local mode: scan once from arguments
	if len(os.Args) < 3 {
		log.Fatal("usage: impact-scan <model-id> <element-id>")
	}

	response, err := HandleScan(context.Background(), ScanRequest{
		ModelID:     os.Args[1],
		ElementID:   os.Args[2],
		TriggerType: "manual",
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	responseJSON, _ := json.MarshalIndent(response, "", "  ")
	log.Printf("Impact report:\n%s", responseJSON)
}
