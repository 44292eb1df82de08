// dto описывает JSON-представление API каталога и конвертацию
// в доменные модели и обратно (используется и сервером, и клиентом).
package dto

type ListResponse struct {
	Items    []Item `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	HasMore  bool   `json:"has_more"`
	// Collection - подборка, если список ею ограничен.
	Collection *Item `json:"collection,omitempty"`
}

type ItemResponse struct {
	Item *Item `json:"item"`
}

type Item struct {
	Kind        string   `json:"kind"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	IsVIP       bool     `json:"is_vip"`
	IsNew       bool     `json:"is_new"`
	Quality     string   `json:"quality,omitempty"`
	Rating      float64  `json:"rating"`
	RatingColor string   `json:"rating_color"`
	Stats       Stats    `json:"stats"`
	UpdatedAt   int64    `json:"updated_at"` // Unix UTC

	Movie      *Movie      `json:"movie,omitempty"`
	Photo      *Photo      `json:"photo,omitempty"`
	Collection *Collection `json:"collection,omitempty"`
}

type Stats struct {
	Views     int64 `json:"views"`
	Downloads int64 `json:"downloads"`
	Likes     int64 `json:"likes"`
	Favorites int64 `json:"favorites"`
}

type Movie struct {
	Year        int      `json:"year"`
	DurationSec int64    `json:"duration_sec"`
	Genres      []string `json:"genres,omitempty"`
}

type Photo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Collection struct {
	MovieCount int `json:"movie_count"`
}
