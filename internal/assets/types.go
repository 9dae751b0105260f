// Package assets orchestrates the asset lifecycle: stage locally, push to
// the remote store, clean up the staging area, bind the result to its owning
// record and write the audit trail. All partial-failure recovery for uploads
// and deletions lives here.
package assets

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/siteconfig"
	"github.com/vexport/vexport/internal/vehicles"
)

var (
	// ErrAssetNotFound indicates a delete target that resolves to no
	// remote object. A client error, not a server fault.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrAmbiguousAsset indicates a filename that matches more than one
	// remote object. Surfaced rather than silently taking the first.
	ErrAmbiguousAsset = errors.New("filename matches multiple assets")
	// ErrAttachFailed indicates the owning record vanished between upload
	// and attach. The remote asset is left as a known orphan; the sweep
	// reports it.
	ErrAttachFailed = errors.New("attach failed")
)

// Upload is one inbound file: the client-supplied name, the declared content
// type and the raw stream.
type Upload struct {
	Filename string
	MIME     string
	Reader   io.Reader
}

// MediaFile is a generic media catalog entry. The catalog has no local
// index; entries are derived from the remote store's listing.
type MediaFile struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	ObjectID  string    `json:"object_id"`
}

// VehicleAttacher binds uploaded image URLs to a vehicle record.
type VehicleAttacher interface {
	AppendImages(ctx context.Context, id string, images []vehicles.Image) (vehicles.Vehicle, error)
}

// VideoAttacher binds the singleton site video URL.
type VideoAttacher interface {
	SetVideoURL(ctx context.Context, url string) (siteconfig.SiteConfig, error)
}

// AuditLog appends lifecycle events. Failures are tolerated: an audit gap is
// preferable to failing an upload that already completed.
type AuditLog interface {
	Record(ctx context.Context, typ activity.Type, action, details, user string) error
}
