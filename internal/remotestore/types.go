// Package remotestore adapts an S3-compatible object store as the durable
// home for uploaded assets. The application keeps only references (object
// key + public URL) once an upload succeeds.
package remotestore

import (
	"context"
	"errors"
	"time"

	"github.com/vexport/vexport/internal/staging"
)

var (
	// ErrUnavailable indicates the store cannot be reached or its
	// credentials are missing. Surfaced distinctly so operators can tell
	// configuration problems from generic faults.
	ErrUnavailable = errors.New("remote store unavailable")
	// ErrRejected indicates the store returned an application-level error
	// for a structurally valid request.
	ErrRejected = errors.New("remote store rejected request")
)

// Kind is the resource-kind hint passed to the store.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAuto  Kind = "auto"
)

// RemoteAsset is the application's reference to an object held by the store.
type RemoteAsset struct {
	// ObjectID is the store's opaque key for the asset, the only handle
	// that deletes it.
	ObjectID string
	// URL is the durable public retrieval URL.
	URL string
	Size      int64
	Kind      Kind
	CreatedAt time.Time
}

// Filename returns the trailing path segment of the object key, the
// human-meaningful name assets are looked up by.
func (a RemoteAsset) Filename() string {
	key := a.ObjectID
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}

// Store is the remote asset store contract consumed by the reconciler.
type Store interface {
	// Upload pushes a staged local file into the category's namespace and
	// returns the durable reference.
	Upload(ctx context.Context, localPath string, category staging.Category) (RemoteAsset, error)
	// Delete removes the object with the given opaque key.
	Delete(ctx context.Context, objectID string) error
	// List enumerates assets under prefix, capped at limit.
	List(ctx context.Context, prefix string, limit int) ([]RemoteAsset, error)
	// HealthCheck verifies credentials and connectivity before any
	// operation is attempted.
	HealthCheck(ctx context.Context) error
}

// FolderFor maps a category to its remote namespace.
func FolderFor(category staging.Category) string {
	switch category {
	case staging.CategoryVehicleImage:
		return "vehicles"
	case staging.CategorySiteVideo:
		return "videos"
	default:
		return "media"
	}
}

// KindFor maps a category to the resource-kind hint used on upload.
func KindFor(category staging.Category) Kind {
	switch category {
	case staging.CategoryVehicleImage:
		return KindImage
	case staging.CategorySiteVideo:
		return KindVideo
	default:
		return KindAuto
	}
}
