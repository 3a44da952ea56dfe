// Package metrics emits per-job metrics in CloudWatch Embedded Metrics
// Format (EMF): one structured JSON line on stdout per job, from which
// CloudWatch extracts metrics without any API calls.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// CloudWatch metric units used by the service.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// Recorder collects the dimensions, metric values, and free-form properties
// of one job and flushes them as a single EMF document. Not safe for
// concurrent use; create one per job.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	defs       []metricDef
	fields     map[string]interface{}
}

var (
	serviceName string
	serviceOnce sync.Once
)

// New creates a Recorder for the given CloudWatch namespace. The Service
// dimension is filled from CROPZIP_SERVICE_NAME (default "cropzip-web").
func New(namespace string) *Recorder {
	serviceOnce.Do(func() {
		serviceName = os.Getenv("CROPZIP_SERVICE_NAME")
		if serviceName == "" {
			serviceName = "cropzip-web"
		}
	})
	return &Recorder{
		namespace:  namespace,
		dimensions: map[string]string{"Service": serviceName},
		fields:     make(map[string]interface{}),
	}
}

// Dimension adds a filterable dimension to every metric in this document.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named value with one of the Unit* constants.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.defs = append(r.defs, metricDef{Name: name, Unit: unit})
	r.fields[name] = value
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a searchable non-metric field (visible in Logs Insights,
// no metric cost).
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.fields[key] = value
	return r
}

// Flush writes the EMF document as one JSON line on stdout. The Recorder
// must not be reused afterwards.
func (r *Recorder) Flush() {
	if len(r.defs) == 0 {
		return
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}

	doc := make(map[string]interface{}, len(r.fields)+len(r.dimensions)+1)
	doc["_aws"] = map[string]interface{}{
		"Timestamp": time.Now().UnixMilli(),
		"CloudWatchMetrics": []map[string]interface{}{{
			"Namespace":  r.namespace,
			"Dimensions": [][]string{dimKeys},
			"Metrics":    r.defs,
		}},
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.fields {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
