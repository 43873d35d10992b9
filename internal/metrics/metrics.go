// Package metrics holds the Prometheus collectors shared across sarinfer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Transfer operations.
const (
	OpUpload  = "upload"
	OpRestore = "restore"
)

var (
	// TransferFilesTotal counts per-file transfers.
	// Labels:
	//   - op: "upload", "restore"
	//   - outcome: "success", "failure"
	TransferFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarinfer_transfer_files_total",
			Help: "Total number of files transferred to or from the object store",
		},
		[]string{"op", "outcome"},
	)

	// TransferBytesTotal counts bytes moved by successful transfers.
	TransferBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarinfer_transfer_bytes_total",
			Help: "Total number of bytes transferred to or from the object store",
		},
		[]string{"op"},
	)

	// AuthFailuresTotal counts rejected credentials on the HTTP surface.
	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sarinfer_auth_failures_total",
		Help: "Total number of requests rejected by the credential gate",
	})

	// MetadataOpsTotal counts metadata store operations.
	// Labels:
	//   - op: "add", "get", "update", "delete", "list"
	//   - outcome: "success", "failure"
	MetadataOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarinfer_metadata_operations_total",
			Help: "Total number of metadata store operations",
		},
		[]string{"op", "outcome"},
	)

	// HTTPRequestDuration measures API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sarinfer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
