package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/imageproc"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, up *mockUploader, rec *mockReconciler, pub *mockPublisher) ListingService {
	return ListingService{
		repo:       repo,
		uploader:   up,
		reconciler: rec,
		publisher:  pub,
		maxImages:  12,
		now:        func() time.Time { return fixedNow },
	}
}

func validListing() model.Listing {
	return model.Listing{Title: " Golf ", Price: 9000, Year: 2015, Features: model.StringSlice{"ABS", " ", "Navi"}}
}

func images(n int) []model.SourceImage {
	out := make([]model.SourceImage, n)
	for i := range out {
		out[i] = model.SourceImage{Name: "img.jpg", Data: []byte{1}, Size: 1}
	}
	return out
}

func uploadOK(urls ...string) *mockUploader {
	return &mockUploader{uploadAllFn: func(_ context.Context, srcs []model.SourceImage) (*model.UploadResult, error) {
		return &model.UploadResult{URLs: urls[:len(srcs)]}, nil
	}}
}

// CREATE - SUCCESS
func TestListingService_Create_OK(t *testing.T) {
	var saved *model.Listing
	repo := &mockRepo{
		createFn: func(_ context.Context, l *model.Listing) error {
			saved = l
			return nil
		},
	}
	up := &mockUploader{uploadAllFn: func(_ context.Context, srcs []model.SourceImage) (*model.UploadResult, error) {
		require.Len(t, srcs, 2)
		return &model.UploadResult{URLs: []string{"https://a/1", "https://b/2"}, FallbackUsed: true, Warnings: []string{"fallback"}}, nil
	}}

	svc := newTestService(repo, up, nil, nil)

	res, err := svc.Create(context.Background(), &model.ListingCreateData{Listing: validListing(), Images: images(2)})
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.NotEqual(t, uuid.Nil, res.Listing.ID)
	require.Equal(t, "Golf", res.Listing.Title)
	require.Equal(t, model.StringSlice{"ABS", "Navi"}, res.Listing.Features)
	require.Equal(t, model.StringSlice{"https://a/1", "https://b/2"}, res.Listing.ImageURLs)
	require.Equal(t, fixedNow, *res.Listing.CreatedAt)
	require.True(t, res.FallbackUsed)
	require.Equal(t, []string{"fallback"}, res.Warnings)
}

// CREATE - VALIDATION FAIL
func TestListingService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *model.Listing)
		images  int
		wantErr error
	}{
		{"empty title", func(l *model.Listing) { l.Title = "  " }, 1, model.ErrInvalidListing},
		{"negative price", func(l *model.Listing) { l.Price = -1 }, 1, model.ErrInvalidListing},
		{"year too old", func(l *model.Listing) { l.Year = 1899 }, 1, model.ErrInvalidListing},
		{"year in far future", func(l *model.Listing) { l.Year = fixedNow.Year() + 2 }, 1, model.ErrInvalidListing},
		{"no images", func(*model.Listing) {}, 0, model.ErrNoImages},
		{"too many images", func(*model.Listing) {}, 13, model.ErrTooManyImages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUploader{uploadAllFn: func(context.Context, []model.SourceImage) (*model.UploadResult, error) {
				t.Fatal("upload must not be called")
				return nil, nil
			}}
			svc := newTestService(&mockRepo{}, up, nil, nil)

			l := validListing()
			tt.mutate(&l)
			_, err := svc.Create(context.Background(), &model.ListingCreateData{Listing: l, Images: images(tt.images)})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// CREATE - UPLOAD FAIL
func TestListingService_Create_UploadErrors(t *testing.T) {
	providerErr := &model.FileError{Name: "a.jpg", Err: &storage.ProviderError{Provider: "cdn", Code: storage.CodeAuthFailed, Err: errors.New("401")}}
	decodeErr := &model.FileError{Name: "b.jpg", Err: model.ErrDecode}

	tests := []struct {
		name      string
		uploadErr error
		wantErr   error
		notWant   error
	}{
		{"provider failure is upload failure", providerErr, model.ErrUploadFailed, nil},
		{"bad file stays a decode error", decodeErr, model.ErrDecode, model.ErrUploadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUploader{uploadAllFn: func(context.Context, []model.SourceImage) (*model.UploadResult, error) {
				return nil, tt.uploadErr
			}}
			svc := newTestService(&mockRepo{}, up, nil, nil)

			_, err := svc.Create(context.Background(), &model.ListingCreateData{Listing: validListing(), Images: images(1)})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.notWant != nil {
				require.NotErrorIs(t, err, tt.notWant)
			}

			var fe *model.FileError
			require.True(t, errors.As(err, &fe))
		})
	}
}

// CREATE - DB FAIL -> uploaded images go to cleanup queue
func TestListingService_Create_DBErrorQueuesCleanup(t *testing.T) {
	var task model.CleanupTask
	pub := &mockPublisher{sendFn: func(_ context.Context, _ retry.Strategy, key []byte, v []byte) error {
		require.NoError(t, json.Unmarshal(v, &task))
		require.Equal(t, task.ListingID, string(key))
		return nil
	}}
	repo := &mockRepo{createFn: func(context.Context, *model.Listing) error { return errors.New("db down") }}

	svc := newTestService(repo, uploadOK("https://a/1"), nil, pub)

	_, err := svc.Create(context.Background(), &model.ListingCreateData{Listing: validListing(), Images: images(1)})
	require.ErrorIs(t, err, model.ErrCommon500)
	require.Equal(t, []string{"https://a/1"}, task.URLs)
}

// UPDATE - SUCCESS
func TestListingService_Update_OK(t *testing.T) {
	id := uuid.New()
	created := fixedNow.Add(-time.Hour)
	original := &model.Listing{ID: id, Title: "Old", ImageURLs: model.StringSlice{"https://a/1", "https://a/2"}, CreatedAt: &created}

	var updated *model.Listing
	rec := &mockReconciler{}
	repo := &mockRepo{
		getFn: func(_ context.Context, gotID string) (*model.Listing, error) {
			require.Equal(t, id.String(), gotID)
			return original, nil
		},
		updateFn: func(_ context.Context, l *model.Listing) error {
			require.Empty(t, rec.purged, "purge must run after the row is updated")
			updated = l
			return nil
		},
	}

	svc := newTestService(repo, uploadOK("https://n/3"), rec, nil)

	res, err := svc.Update(context.Background(), id.String(), &model.ListingUpdateData{
		Listing:       validListing(),
		CurrentImages: []string{"https://a/2", "blob:https://app/preview"},
		Images:        images(1),
	})
	require.NoError(t, err)
	require.Equal(t, updated, res.Listing)
	require.Equal(t, id, updated.ID)
	require.Equal(t, &created, updated.CreatedAt)
	require.Equal(t, fixedNow, *updated.UpdatedAt)
	require.Equal(t, model.StringSlice{"https://a/2", "https://n/3"}, updated.ImageURLs)
	require.Equal(t, [][]string{{"https://a/1"}}, rec.purged)
}

// UPDATE - only removals, no new files
func TestListingService_Update_NoNewFiles(t *testing.T) {
	id := uuid.New().String()
	repo := &mockRepo{
		getFn:    func(context.Context, string) (*model.Listing, error) { return &model.Listing{ImageURLs: model.StringSlice{"https://a/1", "https://a/2"}}, nil },
		updateFn: func(context.Context, *model.Listing) error { return nil },
	}
	up := &mockUploader{uploadAllFn: func(context.Context, []model.SourceImage) (*model.UploadResult, error) {
		t.Fatal("upload must not be called")
		return nil, nil
	}}
	rec := &mockReconciler{}

	svc := newTestService(repo, up, rec, nil)
	res, err := svc.Update(context.Background(), id, &model.ListingUpdateData{Listing: validListing(), CurrentImages: []string{"https://a/1"}})
	require.NoError(t, err)
	require.Equal(t, model.StringSlice{"https://a/1"}, res.Listing.ImageURLs)
	require.Equal(t, [][]string{{"https://a/2"}}, rec.purged)
}

// UPDATE - ссылки, которых не было в объявлении, не сохраняются и не удаляются
func TestListingService_Update_ForeignURLsIgnored(t *testing.T) {
	id := uuid.New().String()
	mine := "https://res.cloudinary.com/demo/image/upload/v1/cars/mine.jpg"
	foreign := "https://res.cloudinary.com/demo/image/upload/v1/cars/other_listing_photo.jpg"

	var updated *model.Listing
	repo := &mockRepo{
		getFn: func(context.Context, string) (*model.Listing, error) {
			return &model.Listing{ImageURLs: model.StringSlice{mine}}, nil
		},
		updateFn: func(_ context.Context, l *model.Listing) error {
			updated = l
			return nil
		},
	}
	rec := &mockReconciler{}

	svc := newTestService(repo, nil, rec, nil)
	res, err := svc.Update(context.Background(), id, &model.ListingUpdateData{
		Listing:       validListing(),
		CurrentImages: []string{foreign, mine},
	})
	require.NoError(t, err)
	require.Equal(t, model.StringSlice{mine}, updated.ImageURLs)
	require.Equal(t, model.StringSlice{mine}, res.Listing.ImageURLs)
	require.Empty(t, rec.purged)

	// и при последующем удалении в очередь уходят только свои картинки
	var task model.CleanupTask
	repo.getFn = func(context.Context, string) (*model.Listing, error) { return updated, nil }
	repo.deleteFn = func(context.Context, string) error { return nil }
	pub := &mockPublisher{sendFn: func(_ context.Context, _ retry.Strategy, _ []byte, v []byte) error {
		return json.Unmarshal(v, &task)
	}}
	svc = newTestService(repo, nil, rec, pub)
	require.NoError(t, svc.Delete(context.Background(), id))
	require.Equal(t, []string{mine}, task.URLs)
}

// UPDATE - client order of kept images is preserved
func TestKeptImages(t *testing.T) {
	original := []string{"https://a/1", "https://a/2", "https://a/3"}

	tests := []struct {
		name    string
		current []string
		want    []string
	}{
		{"reordered", []string{"https://a/3", "https://a/1"}, []string{"https://a/3", "https://a/1"}},
		{"previews and foreign dropped", []string{"blob:https://app/x", "https://evil/1", "https://a/2"}, []string{"https://a/2"}},
		{"nothing kept", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, keptImages(tt.current, original))
		})
	}
}

// UPDATE - DB failure: nothing purged, new uploads queued for cleanup
func TestListingService_Update_DBErrorQueuesCleanup(t *testing.T) {
	id := uuid.New().String()
	repo := &mockRepo{
		getFn: func(context.Context, string) (*model.Listing, error) {
			return &model.Listing{ImageURLs: model.StringSlice{"https://a/1", "https://a/2"}}, nil
		},
		updateFn: func(context.Context, *model.Listing) error { return errors.New("db down") },
	}
	rec := &mockReconciler{}

	var task model.CleanupTask
	var key []byte
	pub := &mockPublisher{sendFn: func(_ context.Context, _ retry.Strategy, k []byte, v []byte) error {
		key = k
		return json.Unmarshal(v, &task)
	}}

	svc := newTestService(repo, uploadOK("https://n/3"), rec, pub)
	_, err := svc.Update(context.Background(), id, &model.ListingUpdateData{
		Listing:       validListing(),
		CurrentImages: []string{"https://a/1"},
		Images:        images(1),
	})
	require.ErrorIs(t, err, model.ErrCommon500)
	require.Empty(t, rec.purged)
	require.Equal(t, id, string(key))
	require.Equal(t, []string{"https://n/3"}, task.URLs)
}

// UPDATE - errors
func TestListingService_Update_Errors(t *testing.T) {
	found := func(context.Context, string) (*model.Listing, error) {
		return &model.Listing{ImageURLs: model.StringSlice{"https://a/1"}}, nil
	}

	tests := []struct {
		name    string
		id      string
		getFn   func(context.Context, string) (*model.Listing, error)
		data    *model.ListingUpdateData
		wantErr error
	}{
		{"bad id", "nope", found, &model.ListingUpdateData{Listing: validListing()}, model.ErrIncorrectID},
		{"not found", uuid.NewString(), func(context.Context, string) (*model.Listing, error) { return nil, model.ErrListingNotFound },
			&model.ListingUpdateData{Listing: validListing(), Images: images(1)}, model.ErrListingNotFound},
		{"db error", uuid.NewString(), func(context.Context, string) (*model.Listing, error) { return nil, errors.New("db") },
			&model.ListingUpdateData{Listing: validListing(), Images: images(1)}, model.ErrCommon500},
		{"all images removed", uuid.NewString(), found,
			&model.ListingUpdateData{Listing: validListing(), CurrentImages: []string{"blob:x"}}, model.ErrNoImages},
		{"only foreign images", uuid.NewString(), found,
			&model.ListingUpdateData{Listing: validListing(), CurrentImages: []string{"https://other/9"}}, model.ErrNoImages},
		{"too many", uuid.NewString(), found,
			&model.ListingUpdateData{Listing: validListing(), CurrentImages: []string{"https://a/1"}, Images: images(12)}, model.ErrTooManyImages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockRepo{getFn: tt.getFn}, nil, nil, nil)
			_, err := svc.Update(context.Background(), tt.id, tt.data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// GETLIST - SUCCESS
func TestListingService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(_ context.Context, req *model.ListRequest) ([]model.Listing, error) {
			require.Equal(t, 1, req.Page)
			require.Equal(t, 30, req.Limit)
			require.Equal(t, model.SortPriceDesc, req.Sort)
			return []model.Listing{{ID: uuid.New()}}, nil
		},
	}

	svc := ListingService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{Sort: " PRICE_DESC "})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestValidateQueryParams(t *testing.T) {
	lo, hi := int64(100), int64(10)
	req := &model.ListRequest{Page: -1, Limit: 1000, Sort: "random", MinPrice: &lo, MaxPrice: &hi}
	require.ErrorIs(t, validateQueryParams(req), model.ErrIncorrectQuery)
	require.Equal(t, 1, req.Page)
	require.Equal(t, 30, req.Limit)
	require.Equal(t, model.SortNewest, req.Sort)

	y1, y2 := 2020, 2010
	require.ErrorIs(t, validateQueryParams(&model.ListRequest{MinYear: &y1, MaxYear: &y2}), model.ErrIncorrectQuery)
}

// GET
func TestListingService_Get(t *testing.T) {
	id := uuid.New()
	repo := &mockRepo{
		getFn: func(_ context.Context, uid string) (*model.Listing, error) {
			if uid != id.String() {
				return nil, model.ErrListingNotFound
			}
			return &model.Listing{ID: id}, nil
		},
	}
	svc := ListingService{repo: repo}

	l, err := svc.Get(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, id, l.ID)

	_, err = svc.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, model.ErrListingNotFound)

	_, err = svc.Get(context.Background(), "123")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// DELETE - SUCCESS
func TestListingService_Delete_OK(t *testing.T) {
	id := uuid.New().String()
	var deleted bool
	var published model.CleanupTask

	repo := &mockRepo{
		getFn: func(context.Context, string) (*model.Listing, error) {
			return &model.Listing{ImageURLs: model.StringSlice{"https://a/1", "https://b/2"}}, nil
		},
		deleteFn: func(_ context.Context, gotID string) error {
			deleted = true
			require.Equal(t, id, gotID)
			return nil
		},
	}
	pub := &mockPublisher{sendFn: func(_ context.Context, s retry.Strategy, key []byte, v []byte) error {
		require.True(t, deleted, "record must be deleted before cleanup is queued")
		require.Equal(t, retryStrategy, s)
		require.Equal(t, id, string(key))
		return json.Unmarshal(v, &published)
	}}

	svc := newTestService(repo, nil, nil, pub)
	require.NoError(t, svc.Delete(context.Background(), id))
	require.Equal(t, model.CleanupTask{ListingID: id, URLs: []string{"https://a/1", "https://b/2"}}, published)
}

// DELETE - PUBLISH FAIL is not fatal
func TestListingService_Delete_PublishErrorIgnored(t *testing.T) {
	repo := &mockRepo{
		getFn:    func(context.Context, string) (*model.Listing, error) { return &model.Listing{ImageURLs: model.StringSlice{"https://a/1"}}, nil },
		deleteFn: func(context.Context, string) error { return nil },
	}
	pub := &mockPublisher{sendFn: func(context.Context, retry.Strategy, []byte, []byte) error {
		return errors.New("kafka down")
	}}

	svc := newTestService(repo, nil, nil, pub)
	require.NoError(t, svc.Delete(context.Background(), uuid.NewString()))
}

// DELETE - errors
func TestListingService_Delete_Errors(t *testing.T) {
	svc := newTestService(&mockRepo{}, nil, nil, nil)
	require.ErrorIs(t, svc.Delete(context.Background(), "bad"), model.ErrIncorrectID)

	svc = newTestService(&mockRepo{
		getFn: func(context.Context, string) (*model.Listing, error) { return nil, model.ErrListingNotFound },
	}, nil, nil, nil)
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.NewString()), model.ErrListingNotFound)

	svc = newTestService(&mockRepo{
		getFn:    func(context.Context, string) (*model.Listing, error) { return &model.Listing{}, nil },
		deleteFn: func(context.Context, string) error { return errors.New("db down") },
	}, nil, nil, nil)
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.NewString()), model.ErrCommon500)
}

// COMPRESS
func TestListingService_CompressImages(t *testing.T) {
	comp := &mockCompressor{compressAllFn: func(_ context.Context, srcs []model.SourceImage, o *model.CompressionOverride, p imageproc.ProgressFunc) ([]model.CompressedImage, error) {
		require.NotNil(t, o)
		out := make([]model.CompressedImage, len(srcs))
		for i := range srcs {
			p(i+1, len(srcs))
			out[i] = model.CompressedImage{Name: "x.jpg", Size: 250}
		}
		return out, nil
	}}
	svc := ListingService{compressor: comp}

	q := 0.5
	files := []model.SourceImage{{Name: "a.png", Size: 1000}, {Name: "b.png", Size: 1000}}
	rep, err := svc.CompressImages(context.Background(), files, &model.CompressionOverride{Quality: &q})
	require.NoError(t, err)
	require.Equal(t, int64(2000), rep.TotalOriginal)
	require.Equal(t, int64(500), rep.TotalCompressed)
	require.Equal(t, 75, rep.RatioPercent)

	_, err = svc.CompressImages(context.Background(), nil, nil)
	require.ErrorIs(t, err, model.ErrNoImages)
}

// UPLOAD + CONFIG
func TestListingService_UploadImages(t *testing.T) {
	up := uploadOK("https://a/1", "https://a/2")
	up.config = model.UploadConfig{PrimaryProvider: "minio", FallbackProvider: "cdn", ObjectStorageEnabled: true}
	svc := newTestService(nil, up, nil, nil)

	res, err := svc.UploadImages(context.Background(), images(2))
	require.NoError(t, err)
	require.Equal(t, []string{"https://a/1", "https://a/2"}, res.URLs)
	require.Equal(t, "minio", svc.UploadConfig().PrimaryProvider)

	_, err = svc.UploadImages(context.Background(), nil)
	require.ErrorIs(t, err, model.ErrNoImages)
}
