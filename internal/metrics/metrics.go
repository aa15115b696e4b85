// Package metrics emits operational counters to CloudWatch.
package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/ibeanu/lesson-store/internal/aws"
)

// Metric names published under the service namespace.
const (
	MetricOrdersPlaced      = "OrdersPlaced"
	MetricOversellRejected  = "OversellRejected"
	MetricConfirmedOrders   = "OrdersConfirmed"
	MetricAvailabilityEdits = "AvailabilityEdits"
)

// Emitter publishes count metrics. A nil Emitter is a no-op so callers can
// run without CloudWatch configured (local development, unit tests).
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewEmitter returns an Emitter publishing under the given namespace.
func NewEmitter(client aws.CloudWatchAPI, namespace string) *Emitter {
	return &Emitter{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count publishes a single count datum. Emission is best effort: a failed
// put is logged, never returned, so metrics cannot fail a request.
func (e *Emitter) Count(ctx context.Context, name string) {
	if e == nil || e.client == nil {
		return
	}
	now := e.nowFunc()
	value := 1.0
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &e.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &now,
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put %s: %v", name, err)
	}
}
