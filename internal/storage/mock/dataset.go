package mock

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/models"

	"github.com/google/uuid"
)

// namespace - пространство имён для детерминированных UUIDv5 mock-элементов.
var namespace = uuid.MustParse("6f1c1f0e-5a7e-4c43-9a55-0d8f5b7c2e11")

var (
	movieGenres         = []string{"action", "comedy", "drama", "sci-fi", "horror"}
	movieQualities      = []string{"4K", "HD", "1080P", "720P"}
	photoCategories     = []string{"landscape", "portrait", "architecture", "animals", "art"}
	photoQualities      = []string{"4K", "HD", "HQ"}
	photoFormats        = []string{"JPEG", "PNG", "WebP", "GIF", "BMP"}
	collectionGenres    = []string{"action", "sci-fi", "drama"}
	collectionTags      = []string{"hot", "recommended", "featured"}
	maxAgeDays          = 30.0
	newThresholdDays    = 1.0
)

// ItemID - детерминированный идентификатор mock-элемента по виду и номеру.
func ItemID(kind models.Kind, n int) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s_%d", kind, n)))
}

// generator порождает элементы из собственного ГПСЧ: одинаковый seed
// и одинаковое now дают одинаковый набор данных.
type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64, now time.Time) *generator {
	return &generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// publishedAt возвращает момент публикации в пределах последних 30 дней и признак новизны (< 24ч).
func (g *generator) publishedAt() (time.Time, bool) {
	daysAgo := g.rng.Float64() * maxAgeDays
	at := g.now.Add(-time.Duration(daysAgo * float64(24*time.Hour))).UTC().Truncate(time.Second)

	return at, daysAgo <= newThresholdDays
}

// rating возвращает рейтинг в [from, from+span) с одним знаком после запятой.
func (g *generator) rating(from, span float64) float64 {
	return math.Round((g.rng.Float64()*span+from)*10) / 10
}

func (g *generator) between(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo)
}

func (g *generator) movies(n int) []models.Item {
	out := make([]models.Item, 0, n)
	for i := 0; i < n; i++ {
		at, isNew := g.publishedAt()
		out = append(out, models.Item{
			Kind:        models.KindMovie,
			ID:          ItemID(models.KindMovie, i+1),
			Title:       fmt.Sprintf("Hot movie %d", i+1),
			Description: fmt.Sprintf("Description of hot movie %d", i+1),
			ImageURL:    fmt.Sprintf("movie-%d", i+1),
			Category:    movieGenres[i%len(movieGenres)],
			IsVIP:       i%3 == 0,
			IsNew:       isNew,
			Quality:     movieQualities[i%len(movieQualities)],
			Rating:      g.rating(6, 4),
			Stats: models.Stats{
				Views:     g.between(1000, 51000),
				Downloads: g.between(0, 10000),
				Likes:     g.between(100, 5100),
				Favorites: g.between(50, 2050),
			},
			UpdatedAt: at,
			Movie: &models.MovieDetails{
				Year:     2024 - g.rng.IntN(5),
				Duration: time.Duration(90+g.rng.IntN(60)) * time.Minute,
				Genres:   []string{movieGenres[i%len(movieGenres)]},
			},
		})
	}

	return out
}

func (g *generator) photos(n int) []models.Item {
	out := make([]models.Item, 0, n)
	for i := 0; i < n; i++ {
		at, isNew := g.publishedAt()
		out = append(out, models.Item{
			Kind:        models.KindPhoto,
			ID:          ItemID(models.KindPhoto, i+1),
			Title:       fmt.Sprintf("Photo set %d", i+1),
			Description: fmt.Sprintf("Description of photo set %d", i+1),
			ImageURL:    fmt.Sprintf("photo-%d", i+1),
			Category:    photoCategories[i%len(photoCategories)],
			IsVIP:       i%4 == 0,
			IsNew:       isNew,
			Quality:     photoQualities[i%len(photoQualities)],
			Rating:      g.rating(7, 3),
			Stats: models.Stats{
				Views:     g.between(1000, 51000),
				Downloads: g.between(100, 5100),
				Likes:     g.between(100, 5100),
				Favorites: g.between(50, 2050),
			},
			UpdatedAt: at,
			Photo: &models.PhotoDetails{
				Format: photoFormats[i%len(photoFormats)],
				Width:  400,
				Height: 500,
			},
		})
	}

	return out
}

func (g *generator) collections(n int) []models.Item {
	out := make([]models.Item, 0, n)
	for i := 0; i < n; i++ {
		at, isNew := g.publishedAt()
		out = append(out, models.Item{
			Kind:        models.KindCollection,
			ID:          ItemID(models.KindCollection, i+1),
			Title:       fmt.Sprintf("Featured collection %d", i+1),
			Description: fmt.Sprintf("Description of featured collection %d", i+1),
			ImageURL:    fmt.Sprintf("collection-%d", i+1),
			Category:    collectionGenres[i%len(collectionGenres)],
			Tags:        append([]string(nil), collectionTags...),
			// Все подборки - VIP.
			IsVIP:  true,
			IsNew:  isNew,
			Rating: g.rating(6, 4),
			Stats: models.Stats{
				Views:     g.between(1000, 51000),
				Downloads: g.between(50, 5050),
				Likes:     g.between(100, 5100),
				Favorites: g.between(50, 2050),
			},
			UpdatedAt:  at,
			Collection: &models.CollectionDetails{MovieCount: 10 + g.rng.IntN(50)},
		})
	}

	return out
}

// members раскладывает фильмы по подборкам: в каждой MovieCount различных
// фильмов (не больше, чем есть), порядок добавления - порядок перестановки.
// MovieCount подборки приводится к фактическому размеру.
func (g *generator) members(collections, movies []models.Item) map[uuid.UUID][]models.Item {
	out := make(map[uuid.UUID][]models.Item, len(collections))
	for _, c := range collections {
		n := min(c.Collection.MovieCount, len(movies))
		c.Collection.MovieCount = n

		picked := make([]models.Item, 0, n)
		for _, idx := range g.rng.Perm(len(movies))[:n] {
			picked = append(picked, movies[idx])
		}
		out[c.ID] = picked
	}

	return out
}
