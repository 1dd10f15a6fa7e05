package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal     = "blamethrower.runs.total"
	metricRunDuration   = "blamethrower.run.duration.seconds"
	metricRecordsTotal  = "blamethrower.records.total"
	metricPhantomsTotal = "blamethrower.phantom_findings.total"

	attrCommand = "command"
	attrKind    = "kind"

	kindAttributed = "finding"
	kindSynthetic  = "synthetic"
)

// RunStats summarizes one completed merge or stats run.
type RunStats struct {
	Command  string
	Status   string
	Duration time.Duration
	// Attributed counts findings emitted with an author.
	Attributed int
	// Synthetic counts attribution-only records.
	Synthetic int
	// Phantoms counts findings emitted without an author.
	Phantoms int
}

// RunMetrics holds the OTel instruments for merge runs.
type RunMetrics struct {
	runsTotal     metric.Int64Counter
	runDuration   metric.Float64Histogram
	recordsTotal  metric.Int64Counter
	phantomsTotal metric.Int64Counter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Total number of merge runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	dur, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Merge run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	records, err := mt.Int64Counter(metricRecordsTotal,
		metric.WithDescription("Records emitted by the merge engine"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsTotal, err)
	}

	phantoms, err := mt.Int64Counter(metricPhantomsTotal,
		metric.WithDescription("Findings that referenced a line absent from the authorship stream"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPhantomsTotal, err)
	}

	return &RunMetrics{
		runsTotal:     runs,
		runDuration:   dur,
		recordsTotal:  records,
		phantomsTotal: phantoms,
	}, nil
}

// RecordRun records one finished run. A nil receiver is a no-op.
func (rm *RunMetrics) RecordRun(ctx context.Context, rs RunStats) {
	if rm == nil {
		return
	}

	cmd := attribute.String(attrCommand, rs.Command)
	attrs := metric.WithAttributes(cmd, attribute.String(attrStatus, rs.Status))

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, rs.Duration.Seconds(), attrs)

	if rs.Attributed > 0 {
		rm.recordsTotal.Add(ctx, int64(rs.Attributed),
			metric.WithAttributes(cmd, attribute.String(attrKind, kindAttributed)))
	}

	if rs.Synthetic > 0 {
		rm.recordsTotal.Add(ctx, int64(rs.Synthetic),
			metric.WithAttributes(cmd, attribute.String(attrKind, kindSynthetic)))
	}

	if rs.Phantoms > 0 {
		rm.phantomsTotal.Add(ctx, int64(rs.Phantoms), metric.WithAttributes(cmd))
	}
}
