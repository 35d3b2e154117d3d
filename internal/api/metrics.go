package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifetale_story_batches_total",
			Help: "Story generation batches by outcome.",
		},
		[]string{"outcome"},
	)

	stageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifetale_stage_operations_total",
			Help: "Single-stage fill and regenerate operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

func countBatch(err error) {
	if err != nil {
		batchesTotal.WithLabelValues("error").Inc()
		return
	}
	batchesTotal.WithLabelValues("ok").Inc()
}

func countStageOp(op string, err error) {
	if err != nil {
		stageOpsTotal.WithLabelValues(op, "error").Inc()
		return
	}
	stageOpsTotal.WithLabelValues(op, "ok").Inc()
}
