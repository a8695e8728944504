package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics ships layout-engine measurements to CloudWatch. A nil client
// turns every recorder into a no-op, which is what tests and local
// development get.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordSave records the outcome and latency of one layout save attempt
func (m *Metrics) RecordSave(ctx context.Context, duration time.Duration, err error) {
	if m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("LayoutSaveLatency"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Status"), Value: aws.String(status)},
			},
			Value:     aws.Float64(float64(duration.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("LayoutSaveCount"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Status"), Value: aws.String(status)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordSeed counts a default-layout bootstrap for a first-time user
func (m *Metrics) RecordSeed(ctx context.Context) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("LayoutSeedCount"),
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

// RecordDanglingReferences counts skipped placement entries observed at
// render time
func (m *Metrics) RecordDanglingReferences(ctx context.Context, count int) {
	if m.client == nil || count == 0 {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("DanglingPlacementReferences"),
			Value:      aws.Float64(float64(count)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		// Metrics must never fail the operation they observe
		if m.logger != nil {
			m.logger.Warn("Failed to send metrics", zap.Error(err))
		}
	}
}
