// Package metrics provides the Prometheus collectors of the churnprep pipeline.
package metrics

// Stage label values.
const (
	StageIngest   = "ingest"
	StageClean    = "clean"
	StageFeatures = "features"
	StageDatasets = "datasets"
	StageTrain    = "train"
	StagePredict  = "predict"
	StageCheck    = "check"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Snapshot operation label values.
const (
	OpSave   = "save"
	OpLoad   = "load"
	OpList   = "list"
	OpDelete = "delete"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
