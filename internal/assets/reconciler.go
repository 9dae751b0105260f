package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/remotestore"
	"github.com/vexport/vexport/internal/staging"
	"github.com/vexport/vexport/internal/vehicles"
)

// Reconciler runs each upload or delete as one synchronous chain and owns
// the compensation rules between the staging area, the remote store and the
// domain records.
type Reconciler struct {
	staging   *staging.Store
	remote    remotestore.Store
	vehicles  VehicleAttacher
	video     VideoAttacher
	audit     AuditLog
	listLimit int
	// deleteRemoteImages enables remote cleanup when a vehicle is deleted.
	deleteRemoteImages bool
	logger             *slog.Logger
}

type Options struct {
	ListLimit          int
	DeleteRemoteImages bool
}

func NewReconciler(log *slog.Logger, stagingStore *staging.Store, remote remotestore.Store,
	vehicleAttacher VehicleAttacher, videoAttacher VideoAttacher, audit AuditLog, opts Options) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	limit := opts.ListLimit
	if limit <= 0 {
		limit = 100
	}
	return &Reconciler{
		staging:            stagingStore,
		remote:             remote,
		vehicles:           vehicleAttacher,
		video:              videoAttacher,
		audit:              audit,
		listLimit:          limit,
		deleteRemoteImages: opts.DeleteRemoteImages,
		logger:             log.With(slog.String("service", "assets")),
	}
}

// UploadVehicleImages stages every file, verifies the remote store, pushes
// the batch and appends the resulting URLs to the vehicle. Staged files
// never survive this call, whichever way it exits.
func (r *Reconciler) UploadVehicleImages(ctx context.Context, vehicleID string, uploads []Upload, actor string) (vehicles.Vehicle, error) {
	if len(uploads) == 0 {
		return vehicles.Vehicle{}, fmt.Errorf("no files uploaded")
	}

	staged, err := r.stageAll(staging.CategoryVehicleImage, uploads)
	if err != nil {
		return vehicles.Vehicle{}, err
	}
	defer r.discardAll(staged)

	if err := r.remote.HealthCheck(ctx); err != nil {
		return vehicles.Vehicle{}, err
	}

	images := make([]vehicles.Image, 0, len(staged))
	for _, sf := range staged {
		asset, err := r.remote.Upload(ctx, sf.Path, staging.CategoryVehicleImage)
		if err != nil {
			return vehicles.Vehicle{}, err
		}
		images = append(images, vehicles.Image{
			URL:         asset.URL,
			StorageKind: vehicles.StorageRemote,
			ObjectID:    asset.ObjectID,
		})
	}

	vehicle, err := r.vehicles.AppendImages(ctx, vehicleID, images)
	if err != nil {
		// The remote assets exist but nothing references them. Deleting
		// them here could itself fail, so they are accepted as orphans
		// and left to the sweep.
		r.logger.Error("attach failed, remote assets orphaned",
			slog.String("vehicle_id", vehicleID),
			slog.Int("count", len(images)),
			slog.Any("error", err))
		return vehicles.Vehicle{}, fmt.Errorf("%w: %v", ErrAttachFailed, err)
	}

	r.recordAudit(ctx, activity.TypeVehicle, "images added",
		fmt.Sprintf("%d images added to %s", len(images), vehicle.Label()), actor)
	return vehicle, nil
}

// UploadMedia runs the generic media chain and returns the catalog entry.
func (r *Reconciler) UploadMedia(ctx context.Context, upload Upload, actor string) (MediaFile, error) {
	sf, err := r.staging.Stage(staging.CategoryMedia, upload.Filename, upload.MIME, upload.Reader)
	if err != nil {
		return MediaFile{}, err
	}
	defer r.discard(sf)

	if err := r.remote.HealthCheck(ctx); err != nil {
		return MediaFile{}, err
	}

	asset, err := r.remote.Upload(ctx, sf.Path, staging.CategoryMedia)
	if err != nil {
		return MediaFile{}, err
	}

	file := MediaFile{
		Filename:  asset.Filename(),
		URL:       asset.URL,
		Type:      fileType(asset.ObjectID),
		Size:      asset.Size,
		CreatedAt: asset.CreatedAt,
		ObjectID:  asset.ObjectID,
	}

	r.recordAudit(ctx, activity.TypeAdmin, "media uploaded", sf.OriginalName, actor)
	return file, nil
}

// UploadSiteVideo replaces the singleton site video. The fixed staging name
// means a second upload overwrites rather than accumulates.
func (r *Reconciler) UploadSiteVideo(ctx context.Context, upload Upload, actor string) (string, error) {
	sf, err := r.staging.Stage(staging.CategorySiteVideo, upload.Filename, upload.MIME, upload.Reader)
	if err != nil {
		return "", err
	}
	defer r.discard(sf)

	if err := r.remote.HealthCheck(ctx); err != nil {
		return "", err
	}

	asset, err := r.remote.Upload(ctx, sf.Path, staging.CategorySiteVideo)
	if err != nil {
		return "", err
	}

	if _, err := r.video.SetVideoURL(ctx, asset.URL); err != nil {
		r.logger.Error("video attach failed, remote asset orphaned",
			slog.String("key", asset.ObjectID), slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrAttachFailed, err)
	}

	r.recordAudit(ctx, activity.TypeAdmin, "video updated", upload.Filename, actor)
	return asset.URL, nil
}

// ListMedia enumerates the media catalog straight from the remote store;
// there is no local index to consult.
func (r *Reconciler) ListMedia(ctx context.Context) ([]MediaFile, error) {
	if err := r.remote.HealthCheck(ctx); err != nil {
		return nil, err
	}
	prefix := remotestore.FolderFor(staging.CategoryMedia) + "/"
	assets, err := r.remote.List(ctx, prefix, r.listLimit)
	if err != nil {
		return nil, err
	}
	files := make([]MediaFile, 0, len(assets))
	for _, a := range assets {
		files = append(files, MediaFile{
			Filename:  a.Filename(),
			URL:       a.URL,
			Type:      fileType(a.ObjectID),
			Size:      a.Size,
			CreatedAt: a.CreatedAt,
			ObjectID:  a.ObjectID,
		})
	}
	return files, nil
}

// DeleteMedia resolves the human filename against the remote listing and
// deletes the single matching object. A failed remote delete is fatal: the
// caller is relying on the asset being gone.
func (r *Reconciler) DeleteMedia(ctx context.Context, filename, actor string) error {
	if err := r.remote.HealthCheck(ctx); err != nil {
		return err
	}

	asset, err := r.resolveMedia(ctx, filename)
	if err != nil {
		return err
	}
	if err := r.remote.Delete(ctx, asset.ObjectID); err != nil {
		return err
	}

	r.recordAudit(ctx, activity.TypeAdmin, "media deleted", filename, actor)
	return nil
}

// CleanupVehicleImages disposes of a deleted vehicle's attachments. Local
// entries are unlinked; remote entries are deleted only when the cleanup
// policy enables it. Best effort: a failed unlink is logged, not surfaced,
// since the vehicle record is already gone.
func (r *Reconciler) CleanupVehicleImages(ctx context.Context, vehicle vehicles.Vehicle) {
	for _, img := range vehicle.Images {
		switch img.StorageKind {
		case vehicles.StorageLocal:
			name := path.Base(img.URL)
			if err := r.staging.RemoveLocal(staging.CategoryVehicleImage, name); err != nil {
				r.logger.Warn("local image cleanup failed",
					slog.String("file", name), slog.Any("error", err))
			}
		case vehicles.StorageRemote:
			if !r.deleteRemoteImages || img.ObjectID == "" {
				continue
			}
			if err := r.remote.Delete(ctx, img.ObjectID); err != nil {
				r.logger.Warn("remote image cleanup failed",
					slog.String("key", img.ObjectID), slog.Any("error", err))
			}
		}
	}
}

// resolveMedia maps a filename to the one remote object it names: the
// trailing path segment must match, or the full "<prefix>/<filename>" key.
func (r *Reconciler) resolveMedia(ctx context.Context, filename string) (remotestore.RemoteAsset, error) {
	prefix := remotestore.FolderFor(staging.CategoryMedia) + "/"
	assets, err := r.remote.List(ctx, prefix, r.listLimit)
	if err != nil {
		return remotestore.RemoteAsset{}, err
	}

	var matches []remotestore.RemoteAsset
	for _, a := range assets {
		if a.Filename() == filename || a.ObjectID == prefix+filename {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return remotestore.RemoteAsset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, filename)
	case 1:
		return matches[0], nil
	default:
		return remotestore.RemoteAsset{}, fmt.Errorf("%w: %s", ErrAmbiguousAsset, filename)
	}
}

func (r *Reconciler) stageAll(category staging.Category, uploads []Upload) ([]staging.StagedFile, error) {
	staged := make([]staging.StagedFile, 0, len(uploads))
	for _, up := range uploads {
		sf, err := r.staging.Stage(category, up.Filename, up.MIME, up.Reader)
		if err != nil {
			r.discardAll(staged)
			return nil, err
		}
		staged = append(staged, sf)
	}
	return staged, nil
}

func (r *Reconciler) discard(sf staging.StagedFile) {
	if err := r.staging.Discard(sf); err != nil {
		r.logger.Warn("staged file cleanup failed",
			slog.String("path", sf.Path), slog.Any("error", err))
	}
}

func (r *Reconciler) discardAll(staged []staging.StagedFile) {
	for _, sf := range staged {
		r.discard(sf)
	}
}

// recordAudit writes the audit entry for a completed operation. Never fatal.
func (r *Reconciler) recordAudit(ctx context.Context, typ activity.Type, action, details, actor string) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Record(ctx, typ, action, details, actor); err != nil {
		r.logger.Warn("audit write failed",
			slog.String("action", action), slog.Any("error", err))
	}
}

func fileType(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}
