package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-movie-catalog/internal/cache"
	"github.com/pribylovaa/go-movie-catalog/internal/config"
	"github.com/pribylovaa/go-movie-catalog/internal/image"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"
	"github.com/pribylovaa/go-movie-catalog/internal/storage/mock"
	"github.com/pribylovaa/go-movie-catalog/mocks"
	"github.com/stretchr/testify/require"
)

// Файл unit-тестов для сервисного слоя (lists.go).
//
// Покрываем:
//  - ListContent:
//      * нормализация page/page_size по лимитам конфига;
//      * фильтр по умолчанию для списка;
//      * ErrInvalidArgument для неизвестных списка/сортировки/периода и storage.ErrInvalidFilter;
//      * повторы к основному хранилищу и переход на запасное;
//      * кэш Total (попадание, промах, ошибка кэша);
//      * переписывание URL изображений.
//  - ContentByID:
//      * маппинг storage.ErrNotFound → service.ErrNotFound;
//      * переход на запасное хранилище при прочих ошибках.

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// testConfig - конфиг с быстрыми повторами и отключёнными изображениями.
func testConfig() config.Config {
	return config.Config{
		LimitsConfig: config.LimitsConfig{
			Default: 12,
			Max:     100,
		},
		Fallback: config.FallbackConfig{
			Retries:        2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
		Images:   config.ImagesConfig{Disabled: true},
		Timeouts: config.TimeoutConfig{Storage: time.Second},
		Redis:    config.RedisConfig{TTL: time.Minute},
	}
}

// testFallback - небольшой детерминированный mock-набор.
func testFallback() *mock.Storage {
	return mock.New(mock.Options{Seed: 3, Now: testNow, MixedPerKind: 10, Photos: 20, Collections: 20})
}

// fakeRecorder считает события сервиса.
type fakeRecorder struct {
	mu        sync.Mutex
	fallbacks []string
	hits      int
	misses    int
}

func (r *fakeRecorder) FallbackUsed(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, op)
}

func (r *fakeRecorder) CacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

// TestListContent_Normalization - page/page_size приводятся к лимитам, фильтр дополняется умолчаниями.
func TestListContent_Normalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       models.ListOptions
		wantPage int
		wantSize int
		wantF    models.Filter
	}{
		{
			name:     "zero values",
			in:       models.ListOptions{List: models.ListHot},
			wantPage: 1,
			wantSize: 12,
			wantF:    models.Filter{SortBy: models.SortPopular, Period: models.Period7Days},
		},
		{
			name:     "negative page and size",
			in:       models.ListOptions{List: models.ListLatest, Page: -3, PageSize: -1},
			wantPage: 1,
			wantSize: 12,
			wantF:    models.Filter{SortBy: models.SortLatest},
		},
		{
			name:     "size above max",
			in:       models.ListOptions{List: models.ListPhotos, Page: 4, PageSize: 1000},
			wantPage: 4,
			wantSize: 100,
			wantF:    models.Filter{SortBy: models.SortLatest},
		},
		{
			name: "explicit filter kept, case folded",
			in: models.ListOptions{
				List:     " Collections ",
				Page:     2,
				PageSize: 24,
				Filter:   models.Filter{SortBy: "RATING", Period: "30days", Category: " drama ", VIPOnly: true},
			},
			wantPage: 2,
			wantSize: 24,
			wantF:    models.Filter{SortBy: models.SortRating, Period: models.Period30Days, Category: "drama", VIPOnly: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			st := mocks.NewMockStorage(ctrl)
			st.EXPECT().
				ListContent(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, opts models.ListOptions) (*models.Page, error) {
					require.Equal(t, tt.wantPage, opts.Page)
					require.Equal(t, tt.wantSize, opts.PageSize)
					require.Equal(t, tt.wantF, opts.Filter)
					return &models.Page{Total: 5}, nil
				})

			svc := New(st, testConfig())

			page, err := svc.ListContent(context.Background(), tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.wantPage, page.Page)
			require.Equal(t, tt.wantSize, page.PageSize)
			require.Equal(t, 5, page.Total)
		})
	}
}

// TestListContent_InvalidArgument - неизвестные значения не доходят до стораджа.
func TestListContent_InvalidArgument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   models.ListOptions
	}{
		{"unknown list", models.ListOptions{List: "trending"}},
		{"unknown sort", models.ListOptions{List: models.ListHot, Filter: models.Filter{SortBy: "oldest"}}},
		{"unknown period", models.ListOptions{List: models.ListHot, Filter: models.Filter{Period: "1year"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			st := mocks.NewMockStorage(ctrl)
			svc := New(st, testConfig(), WithFallback(testFallback()))

			_, err := svc.ListContent(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

// TestListContent_InvalidFilterFromStorage - storage.ErrInvalidFilter: без повторов и без fallback.
func TestListContent_InvalidFilterFromStorage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrInvalidFilter).
		Times(1)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	_, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListLatest})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Empty(t, rec.fallbacks)
}

// TestListContent_RetryThenSuccess - временная ошибка стораджа повторяется.
func TestListContent_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	gomock.InOrder(
		st.EXPECT().
			ListContent(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset")),
		st.EXPECT().
			ListContent(gomock.Any(), gomock.Any()).
			Return(&models.Page{Items: []models.Item{{Kind: models.KindMovie, Title: "A"}}, Total: 1}, nil),
	)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListLatest})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "A", page.Items[0].Title)
	require.Empty(t, rec.fallbacks)
}

// TestListContent_FallbackAfterRetries - после 1+Retries неудач ответ берётся из mock-набора.
func TestListContent_FallbackAfterRetries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down")).
		Times(3)

	fb := testFallback()
	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(fb), WithRecorder(rec))

	opts := models.ListOptions{List: models.ListPhotos, Page: 2, PageSize: 5}
	page, err := svc.ListContent(context.Background(), opts)
	require.NoError(t, err)

	want, err := fb.ListContent(context.Background(), models.ListOptions{
		List:     models.ListPhotos,
		Page:     2,
		PageSize: 5,
		Filter:   models.DefaultFilter(models.ListPhotos),
	})
	require.NoError(t, err)
	require.Equal(t, want.Items, page.Items)
	require.Equal(t, want.Total, page.Total)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 5, page.PageSize)
	require.Equal(t, []string{"service.lists.ListContent"}, rec.fallbacks)
}

// TestListContent_NotMigratedSkipsRetries - без схемы повторы бессмысленны: сразу fallback.
func TestListContent_NotMigratedSkipsRetries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotMigrated).
		Times(1)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListCollections})
	require.NoError(t, err)
	require.Equal(t, 20, page.Total)
	require.Len(t, rec.fallbacks, 1)
}

// TestListContent_FallbackDisabled - при выключенном fallback ошибка стораджа уходит наверх.
func TestListContent_FallbackDisabled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dbErr := errors.New("db down")

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		Return(nil, dbErr).
		Times(3)

	cfg := testConfig()
	cfg.Fallback.Disabled = true
	svc := New(st, cfg, WithFallback(testFallback()))

	_, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListHot})
	require.ErrorIs(t, err, dbErr)
	require.NotErrorIs(t, err, ErrInvalidArgument)
}

// TestListContent_CallerCancelled - отменённый ctx не приводит к fallback.
func TestListContent_CallerCancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.ListOptions) (*models.Page, error) {
			cancel()
			return nil, ctx.Err()
		}).
		Times(1)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	_, err := svc.ListContent(ctx, models.ListOptions{List: models.ListHot})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, rec.fallbacks)
}

// TestListContent_CacheMiss_StoresTotal - промах кэша: полный запрос и запись Total.
func TestListContent_CacheMiss_StoresTotal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	filter := models.DefaultFilter(models.ListHot)
	key := cache.Key(models.ListHot, filter)

	st := mocks.NewMockStorage(ctrl)
	tc := mocks.NewMockTotalCache(ctrl)

	gomock.InOrder(
		tc.EXPECT().Get(gomock.Any(), key).Return(0, false, nil),
		st.EXPECT().ListContent(gomock.Any(), gomock.Any()).Return(&models.Page{Total: 42}, nil),
		tc.EXPECT().Set(gomock.Any(), key, 42, time.Minute).Return(nil),
	)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithCache(tc), WithRecorder(rec))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListHot})
	require.NoError(t, err)
	require.Equal(t, 42, page.Total)
	require.Equal(t, 1, rec.misses)
}

// TestListContent_CacheHit_SkipsCount - попадание: только ListItems, Total из кэша.
func TestListContent_CacheHit_SkipsCount(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	key := cache.Key(models.ListLatest, models.DefaultFilter(models.ListLatest))

	st := mocks.NewMockStorage(ctrl)
	tc := mocks.NewMockTotalCache(ctrl)

	tc.EXPECT().Get(gomock.Any(), key).Return(300, true, nil)
	st.EXPECT().
		ListItems(gomock.Any(), gomock.Any()).
		Return([]models.Item{{Kind: models.KindMovie}, {Kind: models.KindPhoto}}, nil)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithCache(tc), WithRecorder(rec))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListLatest, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 300, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 2, page.PageSize)
	require.Equal(t, 1, rec.hits)
}

// TestListContent_CacheErrorsIgnored - ошибки кэша не ломают выдачу.
func TestListContent_CacheErrorsIgnored(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	tc := mocks.NewMockTotalCache(ctrl)

	tc.EXPECT().Get(gomock.Any(), gomock.Any()).Return(0, false, errors.New("redis: timeout"))
	st.EXPECT().ListContent(gomock.Any(), gomock.Any()).Return(&models.Page{Total: 7}, nil)
	tc.EXPECT().Set(gomock.Any(), gomock.Any(), 7, gomock.Any()).Return(errors.New("redis: timeout"))

	svc := New(st, testConfig(), WithCache(tc))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListCollections})
	require.NoError(t, err)
	require.Equal(t, 7, page.Total)
}

// TestListContent_FallbackNotCached - Total из запасного хранилища в кэш не пишется.
func TestListContent_FallbackNotCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	tc := mocks.NewMockTotalCache(ctrl)

	tc.EXPECT().Get(gomock.Any(), gomock.Any()).Return(0, false, nil)
	st.EXPECT().ListContent(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")).Times(3)
	tc.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := New(st, testConfig(), WithCache(tc), WithFallback(testFallback()))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListHot})
	require.NoError(t, err)
	require.NotZero(t, page.Total)
}

// TestListContent_OptimizesImages - seed-ссылки переписываются по пресету вида контента.
func TestListContent_OptimizesImages(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ListContent(gomock.Any(), gomock.Any()).
		Return(&models.Page{
			Items: []models.Item{
				{Kind: models.KindMovie, ImageURL: "movie-1"},
				{Kind: models.KindPhoto, ImageURL: "photo-1"},
				{Kind: models.KindCollection, ImageURL: "https://cdn.example.org/c.jpg"},
			},
			Total: 3,
		}, nil)

	opt, err := image.New(image.Config{})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Images.Disabled = false
	svc := New(st, cfg, WithImages(opt))

	page, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListLatest})
	require.NoError(t, err)
	require.Equal(t, "https://picsum.photos/seed/movie-1/400/600?q=85", page.Items[0].ImageURL)
	require.Equal(t, "https://picsum.photos/seed/photo-1/400/500?q=85", page.Items[1].ImageURL)
	require.Equal(t, "https://cdn.example.org/c.jpg", page.Items[2].ImageURL)
}

// TestContentByID_NotFound - storage.ErrNotFound → ErrNotFound, fallback не используется.
func TestContentByID_NotFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ContentByID(gomock.Any(), "missing").
		Return(nil, storage.ErrNotFound).
		Times(1)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	_, err := svc.ContentByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, rec.fallbacks)
}

// TestContentByID_Fallback - недоступный сторадж: элемент ищется в mock-наборе.
func TestContentByID_Fallback(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := mock.ItemID(models.KindMovie, 1).String()

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().
		ContentByID(gomock.Any(), id).
		Return(nil, errors.New("db down")).
		Times(3)

	rec := &fakeRecorder{}
	svc := New(st, testConfig(), WithFallback(testFallback()), WithRecorder(rec))

	item, err := svc.ContentByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, item.ID.String())
	require.Equal(t, models.KindMovie, item.Kind)
	require.Equal(t, []string{"service.lists.ContentByID"}, rec.fallbacks)
}

// TestContentByID_OK - happy-path без fallback.
func TestContentByID_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := &models.Item{Kind: models.KindPhoto, Title: "P"}

	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().ContentByID(gomock.Any(), "x").Return(want, nil)

	svc := New(st, testConfig())

	got, err := svc.ContentByID(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestListContent_Collection - список подборки отдаёт её фильмы и саму подборку.
func TestListContent_Collection(t *testing.T) {
	t.Parallel()

	st := testFallback()
	svc := New(st, testConfig())

	id := mock.ItemID(models.KindCollection, 1).String()
	page, err := svc.ListContent(context.Background(), models.ListOptions{
		List:     models.ListCollection,
		PageSize: 4,
		Filter:   models.Filter{CollectionID: " " + id + " ", SortBy: models.SortTitle},
	})
	require.NoError(t, err)

	require.NotNil(t, page.Collection)
	require.Equal(t, id, page.Collection.ID.String())
	require.Equal(t, page.Collection.Collection.MovieCount, page.Total)
	require.Len(t, page.Items, 4)
	for i, it := range page.Items {
		require.Equal(t, models.KindMovie, it.Kind)
		if i > 0 {
			require.LessOrEqual(t, page.Items[i-1].Title, it.Title)
		}
	}

	plain, err := svc.ListContent(context.Background(), models.ListOptions{List: models.ListPhotos})
	require.NoError(t, err)
	require.Nil(t, plain.Collection)
}

func TestListContent_CollectionErrors(t *testing.T) {
	t.Parallel()

	svc := New(testFallback(), testConfig())

	tests := []struct {
		name string
		list models.List
		id   string
		want error
	}{
		{name: "no collection id", list: models.ListCollection, want: ErrInvalidArgument},
		{name: "collection id on plain list", list: models.ListHot, id: mock.ItemID(models.KindCollection, 1).String(), want: ErrInvalidArgument},
		{name: "unknown collection", list: models.ListCollection, id: "00000000-0000-0000-0000-000000000001", want: ErrNotFound},
		{name: "not a collection", list: models.ListCollection, id: mock.ItemID(models.KindPhoto, 1).String(), want: ErrNotFound},
		{name: "malformed id", list: models.ListCollection, id: "bad", want: ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.ListContent(context.Background(), models.ListOptions{
				List:   tc.list,
				Filter: models.Filter{CollectionID: tc.id},
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}
