// Package storage provides bucket/key object stores for source documents and
// exported tables.
//
// Implementations:
//
// - S3: Amazon S3 through aws-sdk-go-v2
// - GCS: Google Cloud Storage
// - Dir: A local directory where each bucket is a subdirectory
// - Memory: An in-process map, used by tests and dry runs
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes whole objects
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Lister is implemented by stores that can enumerate keys under a prefix.
// Keys are returned in lexical order.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Join builds an object key from a prefix and a name, without duplicate or
// leading slashes.
func Join(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return strings.TrimLeft(name, "/")
	}
	return path.Join(prefix, name)
}

// ParseURI splits "gs://bucket/key" or "s3://bucket/key" into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	_, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "", "", errors.New("invalid object uri: " + uri)
	}

	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.New("invalid object uri: " + uri)
	}

	return bucket, key, nil
}
