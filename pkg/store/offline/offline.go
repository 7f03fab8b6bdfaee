// Package offline provides the partitioned columnar store serving
// historical feature data for training reads.
//
// Layout on disk: one subtree per feature group under a root directory,
// partitioned by the calendar date derived from each record's ingestion
// timestamp:
//
//	<root>/<group>/date=2006-01-02/part-<nanos>-<seq>.parquet
//
// Each append writes a complete parquet file into a temporary location and
// renames it into its partition, so a reader never observes a partial row.
// Scans filter partitions by inclusive date range and tolerate a missing
// group subtree as "no data".
package offline

import (
	"context"

	"github.com/skylarkml/skylark/pkg/store"
)

// Store is the partitioned columnar interface the coordinator persists
// through. It is append-only: records are never overwritten, and two
// concurrent appends for the same entity land as two distinct rows.
type Store interface {
	// Append durably writes one record into the partition named by the
	// record's partition date.
	Append(ctx context.Context, rec *store.Record) error

	// Scan returns every record of the group whose partition date falls in
	// [start, end] inclusive (both "YYYY-MM-DD"). A group that has never
	// been written yields an empty slice and a nil error.
	Scan(ctx context.Context, group, start, end string) ([]*store.Record, error)

	// Close flushes and releases any held resources.
	Close() error
}
