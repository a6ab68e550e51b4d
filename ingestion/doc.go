// Package ingestion provides pipeline orchestration for embedding documents.
//
// The Pipeline type manages the embedding workflow for stored documents:
//   - Splitting document content into chunks by content type
//   - Generating embeddings for chunk batches
//   - Upserting chunks and walking document status through the lifecycle
//
// Documents are processed concurrently using a bounded worker pool.
// A failure while processing one document marks that document as errored
// but never fails the batch.
package ingestion
