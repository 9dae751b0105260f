package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/remotestore"
	"github.com/vexport/vexport/internal/siteconfig"
	"github.com/vexport/vexport/internal/staging"
	"github.com/vexport/vexport/internal/vehicles"
)

type fakeRemote struct {
	mu          sync.Mutex
	objects     map[string]remotestore.RemoteAsset
	healthErr   error
	uploadErr   error
	deleteErr   error
	listErr     error
	failAfter   int
	healthCalls int
	uploadCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: map[string]remotestore.RemoteAsset{}, failAfter: -1}
}

func (f *fakeRemote) HealthCheck(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	return f.healthErr
}

func (f *fakeRemote) Upload(ctx context.Context, localPath string, category staging.Category) (remotestore.RemoteAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil && (f.failAfter < 0 || f.uploadCalls > f.failAfter) {
		return remotestore.RemoteAsset{}, f.uploadErr
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return remotestore.RemoteAsset{}, fmt.Errorf("staged file must exist at upload time: %w", err)
	}
	key := path.Join(remotestore.FolderFor(category), filepath.Base(localPath))
	asset := remotestore.RemoteAsset{
		ObjectID:  key,
		URL:       "https://cdn.test/" + key,
		Size:      info.Size(),
		Kind:      remotestore.KindFor(category),
		CreatedAt: time.Now(),
	}
	f.objects[key] = asset
	return asset, nil
}

func (f *fakeRemote) Delete(ctx context.Context, objectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, objectID)
	return nil
}

func (f *fakeRemote) List(ctx context.Context, prefix string, limit int) ([]remotestore.RemoteAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []remotestore.RemoteAsset
	for key, a := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRemote) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeVehicleAttacher struct {
	mu        sync.Mutex
	images    []vehicles.Image
	attachErr error
}

func (f *fakeVehicleAttacher) AppendImages(ctx context.Context, id string, images []vehicles.Image) (vehicles.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return vehicles.Vehicle{}, f.attachErr
	}
	f.images = append(f.images, images...)
	return vehicles.Vehicle{ID: id, Make: "Toyota", Model: "Corolla", Year: 2020, Images: f.images}, nil
}

type fakeVideoAttacher struct {
	url string
	err error
}

func (f *fakeVideoAttacher) SetVideoURL(ctx context.Context, url string) (siteconfig.SiteConfig, error) {
	if f.err != nil {
		return siteconfig.SiteConfig{}, f.err
	}
	f.url = url
	return siteconfig.SiteConfig{VideoURL: url}, nil
}

type auditEntry struct {
	typ    activity.Type
	action string
	user   string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, typ activity.Type, action, details, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, auditEntry{typ: typ, action: action, user: user})
	return nil
}

type fixture struct {
	staging    *staging.Store
	remote     *fakeRemote
	attacher   *fakeVehicleAttacher
	video      *fakeVideoAttacher
	audit      *fakeAudit
	reconciler *Reconciler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store, err := staging.NewStore(nil, t.TempDir())
	require.NoError(t, err)
	f := &fixture{
		staging:  store,
		remote:   newFakeRemote(),
		attacher: &fakeVehicleAttacher{},
		video:    &fakeVideoAttacher{},
		audit:    &fakeAudit{},
	}
	f.reconciler = NewReconciler(nil, store, f.remote, f.attacher, f.video, f.audit, opts)
	return f
}

func (f *fixture) assertStagingEmpty(t *testing.T) {
	t.Helper()
	for _, cat := range staging.Categories() {
		entries, err := os.ReadDir(f.staging.Dir(cat))
		require.NoError(t, err)
		assert.Empty(t, entries, "staging dir for %s should be empty", cat)
	}
}

func imageUpload(name, content string) Upload {
	return Upload{Filename: name, MIME: "image/jpeg", Reader: strings.NewReader(content)}
}

func TestUploadVehicleImagesSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	uploads := []Upload{imageUpload("front.jpg", "aaa"), imageUpload("rear.jpg", "bbb")}

	v, err := f.reconciler.UploadVehicleImages(context.Background(), "veh-1", uploads, "admin")
	require.NoError(t, err)

	assert.Len(t, v.Images, 2)
	for _, img := range v.Images {
		assert.Equal(t, vehicles.StorageRemote, img.StorageKind)
		assert.NotEmpty(t, img.ObjectID)
		assert.True(t, strings.HasPrefix(img.ObjectID, "vehicles/"), "key %q", img.ObjectID)
		assert.NotEmpty(t, img.URL)
	}
	assert.Equal(t, 2, f.remote.objectCount())
	f.assertStagingEmpty(t)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, activity.TypeVehicle, f.audit.entries[0].typ)
	assert.Equal(t, "admin", f.audit.entries[0].user)
}

func TestUploadVehicleImagesHealthCheckFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.healthErr = remotestore.ErrUnavailable

	_, err := f.reconciler.UploadVehicleImages(context.Background(), "veh-1",
		[]Upload{imageUpload("front.jpg", "aaa")}, "admin")
	assert.ErrorIs(t, err, remotestore.ErrUnavailable)
	assert.Zero(t, f.remote.uploadCalls, "unreachable store must never see an upload")
	f.assertStagingEmpty(t)
	assert.Empty(t, f.audit.entries)
}

func TestUploadVehicleImagesValidationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	uploads := []Upload{
		imageUpload("front.jpg", "aaa"),
		{Filename: "notes.txt", MIME: "text/plain", Reader: strings.NewReader("x")},
	}

	_, err := f.reconciler.UploadVehicleImages(context.Background(), "veh-1", uploads, "admin")
	assert.ErrorIs(t, err, staging.ErrUnsupportedType)
	assert.Zero(t, f.remote.healthCalls, "validation failures stop before any remote call")
	f.assertStagingEmpty(t)
}

func TestUploadVehicleImagesPartialRemoteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.uploadErr = errors.New("507 insufficient storage")
	f.remote.failAfter = 1

	_, err := f.reconciler.UploadVehicleImages(context.Background(), "veh-1",
		[]Upload{imageUpload("a.jpg", "aaa"), imageUpload("b.jpg", "bbb")}, "admin")
	require.Error(t, err)

	// The first object was pushed before the batch failed. It is accepted
	// as an orphan rather than compensated inline.
	assert.Equal(t, 1, f.remote.objectCount())
	assert.Empty(t, f.attacher.images)
	f.assertStagingEmpty(t)
}

func TestUploadVehicleImagesAttachFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.attacher.attachErr = errors.New("vehicle vanished")

	_, err := f.reconciler.UploadVehicleImages(context.Background(), "veh-1",
		[]Upload{imageUpload("a.jpg", "aaa"), imageUpload("b.jpg", "bbb")}, "admin")
	assert.ErrorIs(t, err, ErrAttachFailed)

	// Remote assets survive an attach failure; the sweep reconciles later.
	assert.Equal(t, 2, f.remote.objectCount())
	f.assertStagingEmpty(t)
	assert.Empty(t, f.audit.entries)
}

func TestUploadMediaSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	up := Upload{Filename: "brochure.pdf", MIME: "application/pdf", Reader: strings.NewReader("%PDF")}

	file, err := f.reconciler.UploadMedia(context.Background(), up, "admin")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(file.ObjectID, "media/"))
	assert.Equal(t, "pdf", file.Type)
	assert.Equal(t, int64(4), file.Size)
	assert.NotEmpty(t, file.URL)
	f.assertStagingEmpty(t)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, activity.TypeAdmin, f.audit.entries[0].typ)
}

func TestUploadMediaAuditFailureNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.audit.err = errors.New("audit store down")

	_, err := f.reconciler.UploadMedia(context.Background(),
		Upload{Filename: "a.pdf", MIME: "application/pdf", Reader: strings.NewReader("x")}, "admin")
	assert.NoError(t, err, "a broken audit log must not fail a completed upload")
	assert.Equal(t, 1, f.remote.objectCount())
}

func TestUploadSiteVideo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	up := Upload{Filename: "promo.mp4", MIME: "video/mp4", Reader: strings.NewReader("vid")}

	url, err := f.reconciler.UploadSiteVideo(context.Background(), up, "admin")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.test/videos/site-video.mp4", url)
	assert.Equal(t, url, f.video.url)
	f.assertStagingEmpty(t)
}

func TestUploadSiteVideoAttachFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.video.err = errors.New("config row locked")

	_, err := f.reconciler.UploadSiteVideo(context.Background(),
		Upload{Filename: "promo.mp4", MIME: "video/mp4", Reader: strings.NewReader("vid")}, "admin")
	assert.ErrorIs(t, err, ErrAttachFailed)
	assert.Equal(t, 1, f.remote.objectCount(), "the uploaded video stays as an orphan")
	f.assertStagingEmpty(t)
}

func TestListMedia(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.objects["media/a.pdf"] = remotestore.RemoteAsset{ObjectID: "media/a.pdf", URL: "u1", Size: 10}
	f.remote.objects["vehicles/car.jpg"] = remotestore.RemoteAsset{ObjectID: "vehicles/car.jpg", URL: "u2"}

	files, err := f.reconciler.ListMedia(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1, "only the media prefix is part of the catalog")
	assert.Equal(t, "a.pdf", files[0].Filename)
}

func TestDeleteMedia(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.objects["media/a.pdf"] = remotestore.RemoteAsset{ObjectID: "media/a.pdf"}
	f.remote.objects["media/b.pdf"] = remotestore.RemoteAsset{ObjectID: "media/b.pdf"}

	require.NoError(t, f.reconciler.DeleteMedia(context.Background(), "a.pdf", "admin"))
	assert.Equal(t, 1, f.remote.objectCount())
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "media deleted", f.audit.entries[0].action)
}

func TestDeleteMediaNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	err := f.reconciler.DeleteMedia(context.Background(), "missing.pdf", "admin")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestDeleteMediaAmbiguous(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.objects["media/dup.pdf"] = remotestore.RemoteAsset{ObjectID: "media/dup.pdf"}
	f.remote.objects["media/archive/dup.pdf"] = remotestore.RemoteAsset{ObjectID: "media/archive/dup.pdf"}

	err := f.reconciler.DeleteMedia(context.Background(), "dup.pdf", "admin")
	assert.ErrorIs(t, err, ErrAmbiguousAsset)
	assert.Equal(t, 2, f.remote.objectCount(), "nothing is deleted on an ambiguous match")
}

func TestDeleteMediaRemoteFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.remote.objects["media/a.pdf"] = remotestore.RemoteAsset{ObjectID: "media/a.pdf"}
	f.remote.deleteErr = errors.New("access denied")

	err := f.reconciler.DeleteMedia(context.Background(), "a.pdf", "admin")
	assert.Error(t, err)
	assert.Empty(t, f.audit.entries)
}

func TestCleanupVehicleImages(t *testing.T) {
	t.Parallel()

	t.Run("remote kept by default", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, Options{})
		f.remote.objects["vehicles/a.jpg"] = remotestore.RemoteAsset{ObjectID: "vehicles/a.jpg"}

		f.reconciler.CleanupVehicleImages(context.Background(), vehicles.Vehicle{Images: []vehicles.Image{
			{URL: "https://cdn.test/vehicles/a.jpg", StorageKind: vehicles.StorageRemote, ObjectID: "vehicles/a.jpg"},
		}})
		assert.Equal(t, 1, f.remote.objectCount())
	})

	t.Run("remote deleted when enabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, Options{DeleteRemoteImages: true})
		f.remote.objects["vehicles/a.jpg"] = remotestore.RemoteAsset{ObjectID: "vehicles/a.jpg"}

		f.reconciler.CleanupVehicleImages(context.Background(), vehicles.Vehicle{Images: []vehicles.Image{
			{URL: "https://cdn.test/vehicles/a.jpg", StorageKind: vehicles.StorageRemote, ObjectID: "vehicles/a.jpg"},
		}})
		assert.Zero(t, f.remote.objectCount())
	})

	t.Run("local file unlinked", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, Options{})
		localPath := filepath.Join(f.staging.Dir(staging.CategoryVehicleImage), "legacy.jpg")
		require.NoError(t, os.WriteFile(localPath, []byte("x"), 0o644))

		f.reconciler.CleanupVehicleImages(context.Background(), vehicles.Vehicle{Images: []vehicles.Image{
			{URL: "/uploads/vehicles/legacy.jpg", StorageKind: vehicles.StorageLocal},
		}})
		_, err := os.Stat(localPath)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestConcurrentMediaUploads(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	const workers = 8

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			up := Upload{
				Filename: fmt.Sprintf("doc-%d.pdf", i),
				MIME:     "application/pdf",
				Reader:   strings.NewReader(strings.Repeat("x", i+1)),
			}
			_, errs[i] = f.reconciler.UploadMedia(context.Background(), up, "admin")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upload %d", i)
	}
	assert.Equal(t, workers, f.remote.objectCount())
	f.assertStagingEmpty(t)
}
