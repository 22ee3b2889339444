package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLedgerMetrics(reg)
	metrics.ObserveOperation("buy", OutcomeSuccess, 20*time.Millisecond)
	metrics.ObserveOperation("buy", OutcomeSuccess, 10*time.Millisecond)
	metrics.ObserveOperation("sell", OutcomeRejected, time.Millisecond)
	metrics.IncReconciliation(OutcomeDuplicate)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_operations_total", map[string]string{"op": "buy", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch buy: %v", err)
	} else if got != 2 {
		t.Fatalf("expected buy success=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ledger_operations_total", map[string]string{"op": "sell", "outcome": OutcomeRejected}); err != nil {
		t.Fatalf("fetch sell: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sell rejected=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "reconciliation_total", map[string]string{"outcome": OutcomeDuplicate}); err != nil {
		t.Fatalf("fetch reconciliation: %v", err)
	} else if got != 1 {
		t.Fatalf("expected duplicate=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "ledger_operation_duration_seconds", map[string]string{"op": "buy"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestGatewayMetricsLabelsTransportErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewGatewayMetrics(reg)
	metrics.IncConfirm(200)
	metrics.IncConfirm(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, status := range []string{"200", "transport_error"} {
		got, err := fetchCounterValue(mfs, "payment_gateway_confirm_total", map[string]string{"status": status})
		if err != nil {
			t.Fatalf("fetch %s: %v", status, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", status, got)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.ObserveOperation("buy", OutcomeSuccess, time.Second)
	ledger.IncReconciliation(OutcomeCreated)

	var gateway *GatewayMetrics
	gateway.IncConfirm(500)

	unregistered := NewLedgerMetrics(nil)
	unregistered.ObserveOperation("sell", OutcomeError, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
