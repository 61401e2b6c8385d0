package prom

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
	"github.com/storelab/commerce-gateway/pkg/logger"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemPayments = "payments"
)

const (
	MetricPaymentsInitiatedTotal  = "initiated_total"
	MetricPaymentVerifyDuration   = "verify_duration_seconds"
	MetricWebhookEventsTotal      = "webhook_events_total"
	MetricReconciliationConflicts = "reconciliation_conflicts_total"
	MetricGatewayRequestsTotal    = "gateway_requests_total"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogram    = "histogram"
	TypeHistogramVec = "histogramVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounter(SystemPayments, MetricPaymentsInitiatedTotal))
	hasError(createHistogram(SystemPayments, MetricPaymentVerifyDuration))
	hasError(createCounterVec(SystemPayments, MetricWebhookEventsTotal, []string{"event", "outcome"}))
	hasError(createCounter(SystemPayments, MetricReconciliationConflicts))
	hasError(createCounterVec(SystemPayments, MetricGatewayRequestsTotal, []string{"op", "outcome"}))

	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labelsValues ...string) error {
	switch metricType {
	case TypeCounter:
		return createCounter(metricSubsystem, metricName)
	case TypeCounterVec:
		return createCounterVec(metricSubsystem, metricName, labelsValues)
	case TypeHistogram:
		return createHistogram(metricSubsystem, metricName)
	case TypeHistogramVec:
		return createHistogramVec(metricSubsystem, metricName, labelsValues)
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

// IncPaymentInitiated counts one successful gateway initialization.
func IncPaymentInitiated() {
	if !MetricSystemEnabled {
		return
	}
	if c, ok := MetricCollectionCounters[SystemPayments+MetricPaymentsInitiatedTotal]; ok {
		c.Inc()
	}
}

// ObserveVerifyDuration records end-to-end latency of a verify call.
func ObserveVerifyDuration(seconds float64) {
	if !MetricSystemEnabled {
		return
	}
	if h, ok := MetricCollectionHistogram[SystemPayments+MetricPaymentVerifyDuration]; ok {
		h.Observe(seconds)
	}
}

// IncWebhookEvent counts a webhook delivery by event kind and outcome
// (applied, duplicate, ignored, rejected, error).
func IncWebhookEvent(event, outcome string) {
	if !MetricSystemEnabled {
		return
	}
	if c, ok := MetricCollectionCounterVec[SystemPayments+MetricWebhookEventsTotal]; ok {
		c.WithLabelValues(event, outcome).Inc()
	}
}

// IncReconciliationConflict counts refused terminal-state or amount conflicts.
func IncReconciliationConflict() {
	if !MetricSystemEnabled {
		return
	}
	if c, ok := MetricCollectionCounters[SystemPayments+MetricReconciliationConflicts]; ok {
		c.Inc()
	}
}

// IncGatewayRequest counts one call to the payment provider.
func IncGatewayRequest(op, outcome string) {
	if !MetricSystemEnabled {
		return
	}
	if c, ok := MetricCollectionCounterVec[SystemPayments+MetricGatewayRequestsTotal]; ok {
		c.WithLabelValues(op, outcome).Inc()
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounters[subsystem+name] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionCounters[subsystem+name])
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogram(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogram[subsystem+name] = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionHistogram[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}
