// Package blobstore provides storage for persisted vocabulary trees.
//
// Store is the interface for reading and writing whole tree files.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads and atomic renames
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// RetryStore wraps any Store with exponential backoff for Open and Put.
//
//	store := blobstore.NewRetryStore(s3Store, blobstore.DefaultRetryConfig())
//	data, err := blobstore.Get(ctx, store, "tree.vt")
package blobstore
