// image строит URL изображений с оптимизацией (размер, качество, формат)
// для поддерживаемых провайдеров: picsum, собственный CDN, cloudinary.
package image

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
)

// ErrInvalidConfig - некорректная конфигурация оптимизатора.
var ErrInvalidConfig = errors.New("invalid image config")

// Provider - сервис, отдающий изображения.
type Provider string

const (
	ProviderPicsum     Provider = "picsum"
	ProviderCustom     Provider = "custom"
	ProviderCloudinary Provider = "cloudinary"
)

// Format - формат изображения; FormatAuto оставляет выбор провайдеру.
type Format string

const (
	FormatAuto Format = "auto"
	FormatWebP Format = "webp"
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
)

// Значения по умолчанию.
const (
	DefaultWidth   = 400
	DefaultHeight  = 300
	DefaultQuality = 80
)

// DefaultSrcSetWidths - ширины для srcset, если не заданы явно.
var DefaultSrcSetWidths = []int{320, 640, 960, 1280}

// Options - параметры конкретного изображения. Нулевые поля - значения по умолчанию.
type Options struct {
	Width   int
	Height  int
	Quality int
	Format  Format
	Crop    string
}

// Пресеты карточек.
var (
	// Poster - постер фильма или обложка подборки.
	Poster = Options{Width: 400, Height: 600, Quality: 85}
	// PhotoCard - карточка фотосета.
	PhotoCard = Options{Width: 400, Height: 500, Quality: 85}
)

// PresetFor возвращает пресет карточки для вида контента.
func PresetFor(kind models.Kind) Options {
	if kind == models.KindPhoto {
		return PhotoCard
	}

	return Poster
}

// Config - параметры оптимизатора.
type Config struct {
	Provider   Provider
	BaseURL    string
	Quality    int
	Format     Format
	EnableCrop bool
}

// Optimizer строит URL изображений. Безопасен для конкурентного использования.
type Optimizer struct {
	cfg Config
}

// New проверяет конфиг и создаёт оптимизатор.
func New(cfg Config) (*Optimizer, error) {
	switch cfg.Provider {
	case "":
		cfg.Provider = ProviderPicsum
	case ProviderPicsum, ProviderCustom, ProviderCloudinary:
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		if cfg.Provider != ProviderPicsum {
			return nil, fmt.Errorf("%w: base url is required for %s", ErrInvalidConfig, cfg.Provider)
		}
		cfg.BaseURL = "https://picsum.photos/seed"
	}

	if cfg.Quality == 0 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		return nil, fmt.Errorf("%w: quality must be in [1,100]", ErrInvalidConfig)
	}

	switch cfg.Format {
	case "":
		cfg.Format = FormatAuto
	case FormatAuto, FormatWebP, FormatJPG, FormatPNG:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}

	return &Optimizer{cfg: cfg}, nil
}

// URL строит URL изображения seed с параметрами opts как есть.
func (o *Optimizer) URL(seed string, opts Options) string {
	seed = url.PathEscape(strings.TrimSpace(seed))

	switch o.cfg.Provider {
	case ProviderCustom:
		return o.customURL(seed, opts)
	case ProviderCloudinary:
		return o.cloudinaryURL(seed, opts)
	default:
		return o.picsumURL(seed, opts)
	}
}

// Optimized - URL с качеством и форматом из конфига, если в opts они не заданы.
func (o *Optimizer) Optimized(seed string, opts Options) string {
	if opts.Quality == 0 {
		opts.Quality = o.cfg.Quality
	}
	if opts.Format == "" {
		opts.Format = o.cfg.Format
	}

	return o.URL(seed, opts)
}

// Optimize переписывает ссылку на изображение: абсолютные http(s) URL
// остаются как есть, остальное трактуется как seed провайдера.
func (o *Optimizer) Optimize(ref string, opts Options) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return o.Placeholder(opts.Width, opts.Height)
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}

	return o.Optimized(ref, opts)
}

// Placeholder - URL заглушки заданного размера.
func (o *Optimizer) Placeholder(width, height int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	return o.URL("placeholder", Options{Width: width, Height: height})
}

// SrcSet строит атрибут srcset: для каждой ширины высота масштабируется
// пропорционально opts (если opts.Height задана).
func (o *Optimizer) SrcSet(seed string, opts Options, widths ...int) string {
	if len(widths) == 0 {
		widths = DefaultSrcSetWidths
	}

	parts := make([]string, 0, len(widths))
	for _, w := range widths {
		scaled := opts
		scaled.Width = w
		scaled.Height = 0
		if opts.Height > 0 {
			base := opts.Width
			if base <= 0 {
				base = w
			}
			scaled.Height = (opts.Height*w + base/2) / base
		}

		parts = append(parts, o.Optimized(seed, scaled)+" "+strconv.Itoa(w)+"w")
	}

	return strings.Join(parts, ", ")
}

// picsumURL: {base}/{seed}/{w}/{h}?q=..&format=..
// Качество по умолчанию (80) и формат auto в query не попадают.
func (o *Optimizer) picsumURL(seed string, opts Options) string {
	w := opts.Width
	if w <= 0 {
		w = DefaultWidth
	}
	h := opts.Height
	if h <= 0 {
		h = DefaultHeight
	}

	params := url.Values{}
	if opts.Quality != 0 && opts.Quality != DefaultQuality {
		params.Set("q", strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" && opts.Format != FormatAuto {
		params.Set("format", string(opts.Format))
	}

	u := fmt.Sprintf("%s/%s/%d/%d", o.cfg.BaseURL, seed, w, h)
	if q := params.Encode(); q != "" {
		u += "?" + q
	}

	return u
}

// customURL: {base}/{seed}?width=..&height=..&quality=..&format=..&crop=..
func (o *Optimizer) customURL(seed string, opts Options) string {
	params := url.Values{}
	if opts.Width > 0 {
		params.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		params.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Quality > 0 {
		params.Set("quality", strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" && opts.Format != FormatAuto {
		params.Set("format", string(opts.Format))
	}
	if opts.Crop != "" && o.cfg.EnableCrop {
		params.Set("crop", opts.Crop)
	}

	u := o.cfg.BaseURL + "/" + seed
	if q := params.Encode(); q != "" {
		u += "?" + q
	}

	return u
}

// cloudinaryURL: {base}/image/upload/{transformations}/{seed}.
func (o *Optimizer) cloudinaryURL(seed string, opts Options) string {
	var tr []string
	if opts.Width > 0 {
		tr = append(tr, "w_"+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		tr = append(tr, "h_"+strconv.Itoa(opts.Height))
	}
	if opts.Quality > 0 {
		tr = append(tr, "q_"+strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" && opts.Format != FormatAuto {
		tr = append(tr, "f_"+string(opts.Format))
	}
	if opts.Crop != "" && o.cfg.EnableCrop {
		tr = append(tr, "c_"+opts.Crop)
	}

	transform := "auto"
	if len(tr) > 0 {
		transform = strings.Join(tr, ",")
	}

	return o.cfg.BaseURL + "/image/upload/" + transform + "/" + seed
}
