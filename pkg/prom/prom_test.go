package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRegistersPaymentMetrics(t *testing.T) {
	require.NoError(t, Create("test-host", "test", "commerce_test"))
	assert.True(t, MetricSystemEnabled)

	assert.Contains(t, MetricCollectionCounters, SystemPayments+MetricPaymentsInitiatedTotal)
	assert.Contains(t, MetricCollectionHistogram, SystemPayments+MetricPaymentVerifyDuration)
	assert.Contains(t, MetricCollectionCounterVec, SystemPayments+MetricWebhookEventsTotal)
	assert.Contains(t, MetricCollectionCounters, SystemPayments+MetricReconciliationConflicts)
	assert.Contains(t, MetricCollectionCounterVec, SystemPayments+MetricGatewayRequestsTotal)

	before := testutil.ToFloat64(MetricCollectionCounters[SystemPayments+MetricPaymentsInitiatedTotal])
	IncPaymentInitiated()
	after := testutil.ToFloat64(MetricCollectionCounters[SystemPayments+MetricPaymentsInitiatedTotal])
	assert.Equal(t, before+1, after)

	IncWebhookEvent("charge.success", "processed")
	vec := MetricCollectionCounterVec[SystemPayments+MetricWebhookEventsTotal]
	assert.Equal(t, float64(1), testutil.ToFloat64(vec.WithLabelValues("charge.success", "processed")))
}
