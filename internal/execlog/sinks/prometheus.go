package sinks

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/siteproof/linkaudit/internal/execlog"
)

var execlogEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "linkaudit_execlog_entries_total",
		Help: "Execution log entries appended, labeled by level and action tag.",
	},
	[]string{"level", "action"},
)

// PrometheusSink counts execution-log entries by level and action.
type PrometheusSink struct{}

// NewPrometheusSink builds a PrometheusSink.
func NewPrometheusSink() *PrometheusSink { return &PrometheusSink{} }

// Append implements execlog.Sink.
func (s *PrometheusSink) Append(_ context.Context, batch []execlog.Entry) error {
	for _, e := range batch {
		execlogEntriesTotal.WithLabelValues(string(e.Level), e.Action).Inc()
	}
	return nil
}

// Close implements execlog.Sink; it performs no action.
func (s *PrometheusSink) Close(context.Context) error { return nil }
