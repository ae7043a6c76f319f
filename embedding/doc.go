// Package embedding turns text into vectors through a memoizing pipeline.
//
// A Pipeline consults a shared cache.Keyed[core.Vector] (namespace = model
// name) before calling the embedding backend, sends all cache misses in a
// single batched call, and returns vectors in the same order as its inputs.
package embedding
