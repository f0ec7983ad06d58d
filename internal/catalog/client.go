// Package catalog предоставляет клиент внешнего каталога предложений.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubperks/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с каталогом предложений.
// Сетевые ошибки и ответы 5xx повторяются; 429 возвращается вызывающему,
// который сам выдерживает Retry-After.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// OfferDefinition описывает условия предложения в ответе каталога.
type OfferDefinition struct {
	ID             int64           `json:"id"`
	PartnerID      int64           `json:"partner_id"`
	ReductionType  string          `json:"reduction_type"`
	ReductionValue decimal.Decimal `json:"reduction_value"`
	StockAvailable *int64          `json:"stock_available"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidUntil     *time.Time      `json:"valid_until"`
	Status         string          `json:"status"`
}

// Offer переводит определение каталога в доменную модель.
func (d OfferDefinition) Offer() *model.Offer {
	return &model.Offer{
		ID:             d.ID,
		PartnerID:      d.PartnerID,
		ReductionType:  model.ReductionType(strings.ToLower(d.ReductionType)),
		ReductionValue: d.ReductionValue,
		StockAvailable: d.StockAvailable,
		ValidFrom:      d.ValidFrom,
		ValidUntil:     d.ValidUntil,
		Status:         model.OfferStatus(strings.ToLower(d.Status)),
	}
}

// NewClient создаёт HTTP-клиент для обращения к каталогу по указанному адресу.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// FetchOffers запрашивает актуальные определения предложений. Возвращает код
// ответа и, для 429, время ожидания из Retry-After.
func (c *Client) FetchOffers(ctx context.Context) ([]OfferDefinition, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("catalog client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, base+"/api/offers", nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result []OfferDefinition
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return result, resp.StatusCode, 0, nil
}
