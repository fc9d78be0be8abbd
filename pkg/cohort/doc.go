// Package cohort organizes rasterized masks into a patient → visit → slice
// hierarchy and compares measurements across cohorts.
//
// # Overview
//
// A [Tree] collects every decoded mask of a study: patients map to visits,
// visits map to slice numbers, slice numbers map to bitmaps. Trees from
// independent scans merge with [Merge], and a visit's slices become a 3D
// stack with [StackVisit], which orders planes by slice number regardless of
// insertion order.
//
// Measured volumes live in [Volumes] (per patient, in visit order). Two
// cohorts are compared with [SetDifference] (who is missing) and [Combine]
// (per-patient arithmetic on the first recorded volume), where a patient
// absent from one side is reported, never silently dropped.
//
// # Series Keys
//
// Case and file names follow the `{patient}_{visit}_{slice}` convention;
// the two-part form `{patient}_{slice}` implies the baseline visit
// [DefaultVisit]. [ParseSeriesKey] rejects anything else, and callers treat
// that as a per-file report rather than a failure.
//
// # Concurrency
//
// Trees and volume maps are plain maps: not safe for concurrent mutation.
package cohort
