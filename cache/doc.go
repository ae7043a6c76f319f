// Package cache provides process-lifetime memoization tables.
//
// A Keyed cache maps a composite (namespace, key) identity to a typed value.
// Instances are meant to be constructed once at startup and injected into the
// components that share them, for example one cache of embedding vectors
// (namespace = embedding model) and one cache of ranked query results.
package cache
