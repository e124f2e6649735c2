package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/multierr"
)

// PushJob is the Pushgateway job label for pipeline runs.
const PushJob = "region_choropleth"

// Export hands the run's metrics to the configured batch-job sinks: a
// Pushgateway at pushURL and/or a node_exporter textfile at textfile. Empty
// targets are skipped. Every sink is attempted; failures are combined.
//
// Pushed metrics are grouped by job and instance only, so each run replaces
// the previous run's group instead of adding a new one.
func Export(ctx context.Context, g prometheus.Gatherer, pushURL, instance, textfile string) error {
	var err error
	if pushURL != "" {
		pushErr := push.New(pushURL, PushJob).
			Grouping("instance", instance).
			Gatherer(g).
			PushContext(ctx)
		if pushErr != nil {
			err = multierr.Append(err, fmt.Errorf("push metrics to %s: %w", pushURL, pushErr))
		}
	}
	if textfile != "" {
		if writeErr := prometheus.WriteToTextfile(textfile, g); writeErr != nil {
			err = multierr.Append(err, fmt.Errorf("write metrics textfile %s: %w", textfile, writeErr))
		}
	}
	return err
}
