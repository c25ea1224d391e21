package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Emitter pushes metrics to CloudWatch. It is used from the Lambda entry
// points, where there is no long-lived process for Prometheus to scrape.
type Emitter struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewEmitter creates a CloudWatch metrics emitter. A nil client disables
// emission, which keeps local runs free of AWS calls.
func NewEmitter(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Emitter {
	return &Emitter{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordImpactScan records the outcome of one impact scan.
func (e *Emitter) RecordImpactScan(ctx context.Context, triggerType string, impacted int, duration time.Duration, err error) {
	if e == nil || e.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	dimensions := []types.Dimension{
		{Name: aws.String("TriggerType"), Value: aws.String(triggerType)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}

	e.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("ImpactScanDuration"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("ImpactedElements"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(impacted)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

// RecordInvocation records one Lambda invocation by handler name and status.
func (e *Emitter) RecordInvocation(ctx context.Context, handler string, coldStart bool, err error) {
	if e == nil || e.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	datum := types.MetricDatum{
		MetricName: aws.String("Invocations"),
		Dimensions: []types.Dimension{
			{Name: aws.String("Handler"), Value: aws.String(handler)},
			{Name: aws.String("Status"), Value: aws.String(status)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(time.Now()),
	}
	data := []types.MetricDatum{datum}
	if coldStart {
		data = append(data, types.MetricDatum{
			MetricName: aws.String("ColdStarts"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Handler"), Value: aws.String(handler)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		})
	}
	e.put(ctx, data)
}

func (e *Emitter) put(ctx context.Context, data []types.MetricDatum) {
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(e.namespace),
		MetricData: data,
	})
	if err != nil && e.logger != nil {
		// Metrics are best effort and never fail the operation.
		e.logger.Warn("failed to publish CloudWatch metrics", zap.Error(err))
	}
}
