// Package blob defines the artifact store contract. Run artifacts (the
// allocation sheet, the trace funnel, the gate and coverage reports) are
// immutable once written, so Put is create-only: a key is never overwritten.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a store backend.
type Driver string

// Supported artifact store drivers.
const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// ErrUnsupported is returned by operations a driver cannot provide, such as
// presigned URLs on the memory backend.
var ErrUnsupported = errors.New("operation not supported by blob driver")

// PutOptions carries optional metadata for a new artifact.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions parametrizes PresignURL.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the artifact store. Implementations must keep List output sorted
// by key and must reject Put on an existing key.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
}

// RunKey composes the canonical artifact key for a run.
func RunKey(runID, artifact string) string {
	return "runs/" + runID + "/" + artifact
}

// CloneMetadata copies a metadata map so stored values stay isolated from
// caller mutation.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
