package storage

import (
	"context"
	"errors"
	"time"
)

// Disposition controls how a browser presents a delivered file.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

var (
	// ErrObjectNotFound is returned by Head when the key has no object
	// behind it. Callers treat it as non-fatal and fall back to a
	// generic content type.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrUnavailable wraps signing or backend failures. It must never
	// surface as a half-built URL.
	ErrUnavailable = errors.New("storage: backend unavailable")
)

type SignedDownloadOptions struct {
	Filename    string
	ExpiresIn   time.Duration
	Disposition string
	// ContentType overrides detection when set.
	ContentType string
}

type PresignPutOptions struct {
	ContentType string
	ExpiresIn   time.Duration
}

type ObjectInfo struct {
	ContentType string
	Size        int64
}

// Backend is the single abstraction over where product files and
// request deliveries live. Two implementations exist, local disk and
// S3; the driver is chosen once at startup and nothing outside the
// construction site branches on it.
type Backend interface {
	SignedDownloadURL(ctx context.Context, key string, opts SignedDownloadOptions) (string, error)
	PresignedPutURL(ctx context.Context, key string, opts PresignPutOptions) (string, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}
