// Package objectstore uploads translated subtitles to an S3-compatible
// bucket (MinIO, AWS S3, Backblaze and similar) through minio-go.
//
// Writer satisfies pipeline.Writer, so the orchestrator can write either to a
// local directory or to a bucket without knowing which.
package objectstore
