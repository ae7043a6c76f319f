// Package index maintains the searchable vector collection of video
// summaries.
//
// An Index owns one collection of one on-disk store. Documents are embedded
// in a single batch, addressed by a deterministic id derived from their
// checksum (or text) and upserted, so re-ingesting the same videos never
// duplicates a point. When the store fails during an add, the index closes
// it, deletes its directory, opens a fresh one, recreates the collection
// and retries the add once. A second failure is reported as
// storage.ErrStoreCorruption.
//
// Adds and rebuilds hold an exclusive lock; searches share a read lock, so
// a search never observes a half-destroyed store.
package index
