// Package metrics provides the Prometheus collectors of the gazetteer.
package metrics

// Operation label values.
const (
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbUpdate represents database update operations.
	OpDbUpdate = "db_update"
	// OpDbDelete represents database delete operations.
	OpDbDelete = "db_delete"
	// OpDbRaw represents raw SQL statements.
	OpDbRaw = "db_raw"
	// OpCacheGet represents result cache lookups.
	OpCacheGet = "cache_get"
	// OpCacheSet represents result cache writes.
	OpCacheSet = "cache_set"
)

// Label value constants used for metric labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Search types.
	LabelSearchList   = "list"
	LabelSearchExact  = "exact"
	LabelSearchDetail = "detail"

	// Cache results.
	LabelHit  = "hit"
	LabelMiss = "miss"

	// Import outcomes per feature.
	LabelCreated = "created"
	LabelUpdated = "updated"
	LabelSkipped = "skipped"

	LabelUnknown = "unknown"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms.
	BucketStart100ms = 0.1
	// BucketStart1 is the starting bucket for count histograms.
	BucketStart1 = 1.0
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount12 = 12
	BucketCount15 = 15
)
