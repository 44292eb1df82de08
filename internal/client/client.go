// client - типизированный HTTP-клиент API каталога с повторами
// (hashicorp/go-retryablehttp) для временных сбоев сервера.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apierrors "github.com/pribylovaa/go-movie-catalog/internal/errors"
	"github.com/pribylovaa/go-movie-catalog/internal/http/dto"
	"github.com/pribylovaa/go-movie-catalog/internal/http/middleware"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
)

// ErrInvalidConfig - некорректные параметры клиента.
var ErrInvalidConfig = errors.New("invalid client config")

// APIError - ответ сервера с HTTP-статусом не 2xx.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("catalog api: %d %s: %s", e.Status, e.Code, e.Message)
	if e.RequestID != "" {
		msg += " (request_id=" + e.RequestID + ")"
	}
	return msg
}

// Config - параметры клиента. Нулевые значения - умолчания.
type Config struct {
	// BaseURL - адрес сервиса, например http://localhost:8080.
	BaseURL string
	// Timeout - бюджет одной HTTP-попытки (по умолчанию 10s).
	Timeout time.Duration
	// RetryMax - число повторов при 5xx и сетевых ошибках (по умолчанию 2, <0 - без повторов).
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Logger получает записи о повторах; nil -> slog.Default().
	Logger *slog.Logger
}

// Client безопасен для конкурентного использования.
type Client struct {
	base string
	rc   *retryablehttp.Client
}

// New проверяет конфиг и создаёт клиента.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url must be absolute http(s), got %q", ErrInvalidConfig, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: timeout}
	switch {
	case cfg.RetryMax < 0:
		rc.RetryMax = 0
	case cfg.RetryMax == 0:
		rc.RetryMax = 2
	default:
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if rc.RetryWaitMax < rc.RetryWaitMin {
		rc.RetryWaitMax = rc.RetryWaitMin
	}

	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	rc.Logger = lg
	// Последний ответ (в т.ч. 5xx) возвращается как есть, чтобы разобрать тело ошибки.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, rc: rc}, nil
}

// List запрашивает страницу списка: GET /v1/lists/{list}
// или GET /v1/collections/{id}/items для ListCollection.
func (c *Client) List(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "client.List"

	u := c.base + dto.ListPath(opts)
	if q := dto.ListQuery(opts).Encode(); q != "" {
		u += "?" + q
	}

	var resp dto.ListResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page, err := resp.ToModel()
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	return page, nil
}

// ContentByID запрашивает элемент: GET /v1/content/{id}.
func (c *Client) ContentByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "client.ContentByID"

	var resp dto.ItemResponse
	if err := c.get(ctx, c.base+"/v1/content/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Item == nil {
		return nil, fmt.Errorf("%s: empty item in response", op)
	}

	it, err := resp.Item.ToModel()
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	return &it, nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	// Остаток дедлайна сокращает серверный бюджет запроса.
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl).Round(time.Millisecond); left > 0 {
			req.Header.Set(middleware.HeaderRequestTimeout, left.String())
		}
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		// Отмена/дедлайн вызывающего важнее обёртки retryablehttp.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		Status:    resp.StatusCode,
		Code:      "unknown",
		Message:   http.StatusText(resp.StatusCode),
		RequestID: resp.Header.Get("X-Request-Id"),
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env apierrors.ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		if env.Error.RequestID != "" {
			apiErr.RequestID = env.Error.RequestID
		}
	}

	return apiErr
}
