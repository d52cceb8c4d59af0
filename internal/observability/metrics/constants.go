package metrics

// Result label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// KindNone labels errors that carry no classification kind.
const KindNone = "none"

// Histogram bucket configuration
const (
	// BucketStart1ms is the first bucket for 1ms histograms (1ms to ~4s).
	BucketStart1ms = 0.001
	// BucketStart10ms is the first bucket for 10ms histograms (10ms to ~40s).
	BucketStart10ms = 0.01
	// BucketStart64B is the first bucket for message size histograms.
	BucketStart64B = 64.0
	// BucketStart100B is the first bucket for response size histograms (100B to ~100MB).
	BucketStart100B = 100.0

	BucketFactor2  = 2
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount10 = 10
	BucketCount12 = 12
)

// ConfidenceBuckets are percentage buckets for prediction confidence.
var ConfidenceBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99}
