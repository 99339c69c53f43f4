package events

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/aws"
)

// CloudWatchMetrics pushes engine counters to CloudWatch. Failures are
// logged and dropped; metrics never gate a lifecycle operation.
type CloudWatchMetrics struct {
	CW        aws.CloudWatchAPI
	Namespace string
	Log       *logrus.Logger
	nowFunc   func() time.Time
}

// NewCloudWatchMetrics returns a metrics sink under the given namespace.
func NewCloudWatchMetrics(cw aws.CloudWatchAPI, namespace string, log *logrus.Logger) *CloudWatchMetrics {
	if log == nil {
		log = logrus.New()
	}
	return &CloudWatchMetrics{
		CW:        cw,
		Namespace: namespace,
		Log:       log,
		nowFunc:   time.Now,
	}
}

// Count records a counter sample.
func (m *CloudWatchMetrics) Count(ctx context.Context, name string, value float64) {
	ts := m.nowFunc()
	_, err := m.CW.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &ts,
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	})
	if err != nil {
		m.Log.WithError(err).WithField("metric", name).Warn("put metric data failed")
	}
}
