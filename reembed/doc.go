// Package reembed recomputes the vectors of every point in a video index,
// typically after the embedding model changed.
//
// Points are read in batches, their payload text is embedded again and the
// points are written back under the same IDs. Progress is reported to a
// writer while the run is in flight.
package reembed
