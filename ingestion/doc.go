// Package ingestion turns a directory of videos into indexed documents.
//
// For every .mov or .mp4 file the Ingester:
//   - computes a BLAKE2b checksum of the file contents
//   - reuses the {checksum}.json sidecar in the working directory's .tmp
//     folder when one exists
//   - otherwise extracts the audio track with ffmpeg, transcribes it,
//     summarizes the transcript with the chat model and writes the sidecar
//
// The resulting documents are handed to the vector index in a single batch.
// Videos are processed concurrently on a bounded worker pool; the index
// only ever sees one writer.
//
// The Watcher keeps an index current by ingesting video files as they are
// created or modified.
package ingestion
