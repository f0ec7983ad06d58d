package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubperks/internal/model"
)

func TestFetchOffers_OK(t *testing.T) {
	validFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/offers" {
			t.Fatalf("path = %s, want /api/offers", r.URL.Path)
		}

		resp := []OfferDefinition{
			{
				ID:             7,
				PartnerID:      3,
				ReductionType:  "PERCENTAGE",
				ReductionValue: decimal.RequireFromString("12.5"),
				StockAvailable: ptrInt64(100),
				ValidFrom:      validFrom,
				Status:         "active",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.FetchOffers(ctx)
	if err != nil {
		t.Fatalf("FetchOffers error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if len(res) != 1 || res[0].ID != 7 {
		t.Fatalf("unexpected response: %+v", res)
	}

	offer := res[0].Offer()
	if offer.ReductionType != model.ReductionPercentage {
		t.Fatalf("reduction type = %q, want percentage", offer.ReductionType)
	}
	if !offer.ReductionValue.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("reduction value = %s", offer.ReductionValue)
	}
	if offer.StockAvailable == nil || *offer.StockAvailable != 100 {
		t.Fatalf("unexpected stock: %v", offer.StockAvailable)
	}
	if err := offer.Validate(); err != nil {
		t.Fatalf("offer must be valid: %v", err)
	}
}

func TestFetchOffers_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.FetchOffers(ctx)
	if err != nil {
		t.Fatalf("FetchOffers error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil response for 429, got %+v", res)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
}

func TestFetchOffers_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, code, _, err := client.FetchOffers(context.Background())
	if err == nil {
		t.Fatalf("expected error for 502")
	}
	if code != http.StatusBadGateway {
		t.Fatalf("status code = %d, want %d", code, http.StatusBadGateway)
	}
}

func TestFetchOffers_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, code, _, err := client.FetchOffers(context.Background())
	if err != nil {
		t.Fatalf("FetchOffers error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchOffers_NotConfigured(t *testing.T) {
	var client *Client

	if _, _, _, err := client.FetchOffers(context.Background()); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
