package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics counts payment gateway confirm calls by relayed status.
type GatewayMetrics struct {
	confirms *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	confirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_confirm_total",
		Help: "Payment confirm calls relayed to the gateway, by HTTP status.",
	}, []string{"status"})
	reg.MustRegister(confirms)
	return &GatewayMetrics{confirms: confirms}
}

// IncConfirm records a relayed status. Zero means the gateway was unreachable.
func (g *GatewayMetrics) IncConfirm(status int) {
	if g == nil || g.confirms == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	g.confirms.WithLabelValues(label).Inc()
}
